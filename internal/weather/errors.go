package weather

import "errors"

// Failure taxonomy for the retrieval and persistence pipeline. Callers
// classify with errors.Is; every failure path surfaces exactly one of these.
var (
	// ErrInvalidCountry means the country code does not resolve to a known
	// country. Client-caused, not retryable.
	ErrInvalidCountry = errors.New("invalid country code")

	// ErrInvalidProvider means configuration references an unknown weather
	// provider identifier.
	ErrInvalidProvider = errors.New("invalid weather provider")

	// ErrInvalidStorageType means configuration references an unknown
	// storage backend identifier.
	ErrInvalidStorageType = errors.New("invalid storage type")

	// ErrCityNotFound means the upstream provider reports the city does not
	// exist. Client-caused, not retryable.
	ErrCityNotFound = errors.New("city not found")

	// ErrProviderAuthFailure means the upstream rejected our credential.
	// Never exposed verbatim to the caller.
	ErrProviderAuthFailure = errors.New("provider rejected api credentials")

	// ErrProviderUnavailable covers upstream non-2xx responses outside the
	// not-found/auth cases, transport errors and timeouts. Retryable.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrNoForecastAvailable means the provider answered 2xx but returned
	// zero records. Treated as a pipeline failure, not an empty success.
	ErrNoForecastAvailable = errors.New("no forecast available")

	// ErrCityExists signals a unique-constraint rejection on city insert.
	// Recoverable: the caller re-reads the existing City and retries the
	// save with records only.
	ErrCityExists = errors.New("city already exists")
)
