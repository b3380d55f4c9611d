package config

import "errors"

var (
	// ErrNoSeedURLs is returned when no seed URLs are provided
	ErrNoSeedURLs = errors.New("no seed URLs provided")
	// ErrInvalidConcurrency is returned when concurrency is not greater than 0
	ErrInvalidConcurrency = errors.New("concurrency must be greater than 0")
	// ErrInvalidTimeout is returned when request timeout is not greater than 0
	ErrInvalidTimeout = errors.New("request_timeout must be greater than 0")
	// ErrInvalidRevisitAfter is returned when revisit_after is not greater than 0
	ErrInvalidRevisitAfter = errors.New("revisit_after must be greater than 0")
	// ErrInvalidLimit is returned for a negative page limit
	ErrInvalidLimit = errors.New("limit cannot be negative")
	// ErrUnknownDriver is returned for a database driver other than sqlite or postgres
	ErrUnknownDriver = errors.New("database.driver must be sqlite or postgres")
	// ErrEmptyDSN is returned when the database DSN is empty
	ErrEmptyDSN = errors.New("database.dsn cannot be empty")
	// ErrInvalidLogFormat is returned for a log format other than json or text
	ErrInvalidLogFormat = errors.New("log.format must be json or text")
	// ErrInvalidDomainDelay is returned for a domain_delays entry not in host=duration form
	ErrInvalidDomainDelay = errors.New("domain_delays entries must be host=duration")
	// ErrInvalidPattern is returned when an include or exclude pattern does not compile
	ErrInvalidPattern = errors.New("invalid URL pattern")
)
