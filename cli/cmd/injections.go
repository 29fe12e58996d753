package cmd

import "context"

// injectionsKey is the context key for the `-<name> <value>` environment
// injections collected by cli's pre-scan.
type injectionsKey struct{}

// WithInjections returns a new context.Context carrying the given
// injections map.
func WithInjections(ctx context.Context, inj map[string]string) context.Context {
	return context.WithValue(ctx, injectionsKey{}, inj)
}

// InjectionsFrom retrieves the injections map stored by WithInjections.
// Returns nil if none was stored.
func InjectionsFrom(ctx context.Context) map[string]string {
	inj, _ := ctx.Value(injectionsKey{}).(map[string]string)

	return inj
}
