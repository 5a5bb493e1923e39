package ports

import "context"

type HealthPort interface {
	// Check reports whether the redaction pipeline is ready; name is echoed back in msg.
	Check(ctx context.Context, name string) (healthy bool, msg string)
}
