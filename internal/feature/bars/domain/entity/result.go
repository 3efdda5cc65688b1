package entity

// ResultKind classifies a provider response for one month query.
type ResultKind int

const (
	// ResultSuccess means the time series was present with at least one point.
	ResultSuccess ResultKind = iota
	// ResultEmpty means the time series was present but had no points.
	ResultEmpty
	// ResultRateLimited means the time series was absent and the provider sent
	// a note or information message instead (rate limit, bad symbol or key).
	ResultRateLimited
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultEmpty:
		return "empty"
	case ResultRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Result is the decoded outcome of one month query.
type Result struct {
	Kind    ResultKind
	Bars    []Bar  // set only for ResultSuccess
	Message string // provider message for ResultRateLimited
}
