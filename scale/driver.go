package scale

import "errors"

// Driver errors. Drivers may wrap these or return their own; the manager
// only distinguishes success from failure.
var (
	// ErrNotReady indicates no conversion result was available in time.
	ErrNotReady = errors.New("scale: conversion not ready")

	// ErrBus indicates a bus-level I/O failure.
	ErrBus = errors.New("scale: bus error")
)

// Driver is the fixed contract of the load-cell ADC chip driver. The
// register programming and internal calibration of the chip live behind
// this interface; the manager only ever asks for raw conversions.
type Driver interface {
	// ReadRaw performs one blocking conversion and returns the signed
	// 24-bit raw ADC value.
	ReadRaw() (int32, error)
}
