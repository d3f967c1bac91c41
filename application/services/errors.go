package services

import "errors"

var ErrChallengeStoreFailed = errors.New("could not store issued challenge")
