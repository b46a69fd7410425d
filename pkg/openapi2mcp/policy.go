package openapi2mcp

// Decision is the outcome of one policy evaluation.
type Decision struct {
	Allowed bool
	Reason  string
}

// String returns "allowed" or "denied" for audit logs.
func (d Decision) String() string {
	if d.Allowed {
		return "allowed"
	}
	return "denied"
}

// Evaluate decides whether a tool bound to method may run. In read-only mode only
// GET, HEAD and OPTIONS are permitted.
func Evaluate(readOnly bool, method Method) Decision {
	if readOnly && method.IsWrite() {
		return Decision{Allowed: false, Reason: PolicyDeniedReason}
	}
	return Decision{Allowed: true}
}

// Policy is the read-only gate consulted on every invocation.
type Policy struct {
	ReadOnly bool
}

// Evaluate applies the gate to method. The result is never cached.
func (p Policy) Evaluate(method Method) Decision {
	return Evaluate(p.ReadOnly, method)
}

// Mode names the active mode for logs and server instructions.
func (p Policy) Mode() string {
	if p.ReadOnly {
		return "read-only"
	}
	return "read-write"
}
