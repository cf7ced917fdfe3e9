package model

import "errors"

var (
	// ErrEmptyQuestion is returned when a search is submitted without text
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrQueryExecution wraps every failure of the triple store round trip.
	// It is kept distinct from translation problems so callers never report
	// a store outage as "could not understand the question".
	ErrQueryExecution = errors.New("query execution failed")

	// ErrUnsupportedQuery is returned for raw SPARQL that is not a read query
	ErrUnsupportedQuery = errors.New("only SELECT and ASK queries are accepted")

	// ErrSearchLogDisabled is returned by history operations when no search log is configured
	ErrSearchLogDisabled = errors.New("search log is disabled")

	// ErrSearchNotFound is returned when a search id is unknown
	ErrSearchNotFound = errors.New("search not found")
)
