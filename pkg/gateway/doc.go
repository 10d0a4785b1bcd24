/*
Package gateway defines the backend contract the synchronization engine
talks to and provides two implementations of it.

# Implementations

HTTPClient speaks JSON to the workspace REST backend under /api/workspace.
Requests carry a bearer token and an X-Correlation-Id header. Transport
failures, 429 and 5xx responses are retried with exponential backoff,
honouring Retry-After, up to a fixed budget. Other non-2xx responses are
returned as *HTTPError.

Local keeps the workspace in a bbolt file through pkg/storage. It applies
the backend's rules itself:

  - project names are unique, page names are unique within a project and
    tab names within a page
  - new entities are appended after their siblings; deleting one closes
    the gap in display order
  - a tab created at a position shifts later tabs; a position past the end
    appends
  - creating or activating a tab deactivates its siblings
  - changing a tab's kind discards its content
  - welcome and design table tabs store no content
  - content updates are deep-merged server side; replaces overwrite
  - encrypted content is sealed with AES-GCM under a key derived from the
    session password and a per-tab salt

# Errors

Callers classify failures with errors.Is against the package sentinels:

	ErrNotFound          404, or a missing record in Local
	ErrConflict          409, duplicate names
	ErrInvalid           400/422, malformed requests and unknown kinds
	ErrInvalidPassword   401/403, password does not match the account
	ErrPasswordRequired  encrypted call issued without a password

IsTransport reports connectivity failures, timeouts and 5xx responses.

# Metrics

Every call is counted in vcw_gateway_requests_total by operation and
outcome and timed in vcw_gateway_request_duration_seconds. HTTP retries are
counted in vcw_gateway_retries_total.
*/
package gateway
