package constant

const (
	// AuthorizationRealm is the scheme prefix of the `Authorization` header value.
	AuthorizationRealm = "Bearer"

	// ContextKeyUserID is the fiber Locals key holding the authenticated user id.
	ContextKeyUserID = "userID"
)
