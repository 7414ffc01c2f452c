package domain

// Dashboard roles carried in operator JWTs.
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
	RoleStaff = "staff"
)
