// Package generation defines the document generator port. The consult
// surface pre-commits quota, calls the generator, and refunds on failure;
// implementations live in infrastructure.
package generation

import "context"

// Generator is the downstream document generator. It is the slow,
// unreliable step of a consultation: quota is committed before calling it
// and refunded if it fails.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// Request carries the query plus the policy-resolved shaping parameters.
// An ItemCap of zero means uncapped.
type Request struct {
	Query        string
	ModelKind    string
	ResponseMode string
	ItemCap      int
}

type Result struct {
	Content map[string]interface{}
}
