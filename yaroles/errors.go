package yaroles

import "errors"

var (
	ErrRoleNotFound   = errors.New("[ROLES] role not found")
	ErrInvalidRoleMap = errors.New("[ROLES] invalid role map")

	ErrRedisLoadRoles = errors.New("[REDIS] failed to load roles")
	ErrRedisSaveRoles = errors.New("[REDIS] failed to save roles")
)
