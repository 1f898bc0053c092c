package model

// TenantScope identifies the workspace a request acts on. It is resolved once
// at the HTTP boundary and passed explicitly to every repository and service
// call; nothing reads tenant identity from ambient state.
type TenantScope struct {
	ID int
}
