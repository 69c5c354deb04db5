package filedepot

import "context"

// Outcome carries the result of an asynchronous call form: exactly one of
// Value or Err is meaningful, matching the (T, error) pair of the blocking
// form one to one.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Hook is one extension point with two user-selectable forms. Call blocks
// until the hook decides; CallAsync delivers the decision on its channel.
// At most one form should be set; when both are set the blocking form wins.
// Both forms funnel through the same dispatch routine, so an engine observes
// identical outcomes regardless of which form the user supplied.
type Hook[A, T any] struct {
	Call      func(ctx context.Context, arg A) (T, error)
	CallAsync func(ctx context.Context, arg A) <-chan Outcome[T]
}

// IsSet reports whether either form of the hook is configured.
func (h Hook[A, T]) IsSet() bool {
	return h.Call != nil || h.CallAsync != nil
}

// dispatch runs whichever form is configured and normalizes the result.
// Unset hooks yield the zero value and no error.
func (h Hook[A, T]) dispatch(ctx context.Context, arg A) (T, error) {
	var zero T
	switch {
	case h.Call != nil:
		return h.Call(ctx, arg)
	case h.CallAsync != nil:
		select {
		case out, ok := <-h.CallAsync(ctx, arg):
			if !ok {
				return zero, nil
			}
			return out.Value, out.Err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	default:
		return zero, nil
	}
}

// goOutcome adapts a blocking core into the channel call form. Every async
// surface in the package is this adapter around its sync twin, which is what
// keeps the two forms' outcomes identical.
func goOutcome[T any](fn func() (T, error)) <-chan Outcome[T] {
	out := make(chan Outcome[T], 1)
	go func() {
		defer close(out)
		v, err := fn()
		out <- Outcome[T]{Value: v, Err: err}
	}()
	return out
}

// BeforeUploadDecision is what an OnBeforeUpload hook returns: Allow true to
// proceed, anything else rejects with Reason surfaced to the caller.
type BeforeUploadDecision struct {
	Allow  bool
	Reason string
}

// Allow is the decision that lets an upload proceed.
func Allow() BeforeUploadDecision { return BeforeUploadDecision{Allow: true} }

// Deny rejects an upload with the given reason.
func Deny(reason string) BeforeUploadDecision {
	return BeforeUploadDecision{Reason: reason}
}

// DownloadRequest is the argument to the download-side hooks.
type DownloadRequest struct {
	HTTP    *HTTPContext
	Record  *FileRecord
	Version string
}

// Hooks is the full set of extension points a Collection dispatches. Every
// field is optional.
type Hooks struct {
	// NamingFunc computes the storage-safe name for an upload. When unset
	// the descriptor name is sanitized with SanitizeName.
	NamingFunc Hook[*FileDescriptor, string]

	// OnBeforeUpload authorizes a prepared upload. A non-Allow decision
	// fails PrepareUpload with a HookRejectedError carrying the reason.
	OnBeforeUpload Hook[*FileDescriptor, BeforeUploadDecision]

	// OnInitiateUpload fires once transport actually begins receiving
	// bytes. PrepareUpload never invokes it.
	OnInitiateUpload Hook[*FileDescriptor, struct{}]

	// OnAfterUpload fires with the committed record after a successful
	// finish or AddFile. Its outcome never affects the operation result.
	OnAfterUpload Hook[*FileRecord, struct{}]

	// DownloadCallback vetoes serving: false means respond 404.
	DownloadCallback Hook[DownloadRequest, bool]

	// InterceptDownload takes over the whole response when it returns
	// true; the engine then performs no stat, no further hook, no serve.
	InterceptDownload Hook[DownloadRequest, bool]
}
