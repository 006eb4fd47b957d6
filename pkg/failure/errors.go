package failure

type Severity int

// Severity drives recovery decisions at component boundaries.
const (
	SeverityFatal Severity = iota
	SeverityRecoverable
)

type ClassifiedError interface {
	error
	Severity() Severity
}
