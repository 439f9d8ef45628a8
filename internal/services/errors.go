package services

import "errors"

var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrDownload          = errors.New("set download failed")
	ErrExtraction        = errors.New("set extraction failed")
	ErrParse             = errors.New("set parse failed")
	ErrVersionDerivation = errors.New("collection version derivation failed")
)
