package services

import "errors"

var ErrShuttingDown = errors.New("ingest queue is closed")
