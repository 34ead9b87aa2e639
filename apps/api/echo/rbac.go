package echoapi

import "github.com/campoalegre/unibus/core"

// Permission is "<resource>:<action>".
type Permission string

const (
	permStudentsRead            Permission = "students:read"
	permStudentsWrite           Permission = "students:write"
	permStudentsDelete          Permission = "students:delete"
	permStudentsEnrollBiometric Permission = "students:enroll_biometric"
	permInstitutionsRead        Permission = "institutions:read"
	permInstitutionsWrite       Permission = "institutions:write"
	permBoardingPointsRead      Permission = "boarding_points:read"
	permBoardingPointsWrite     Permission = "boarding_points:write"
	permRoutesRead              Permission = "routes:read"
	permRoutesWrite             Permission = "routes:write"
	permVehiclesRead            Permission = "vehicles:read"
	permVehiclesWrite           Permission = "vehicles:write"
	permDriversRead             Permission = "drivers:read"
	permDriversWrite            Permission = "drivers:write"
	permOperationDaysRead       Permission = "operation_days:read"
	permOperationDaysWrite      Permission = "operation_days:write"
	permOperationDaysPublish    Permission = "operation_days:publish"
	permTripsRead               Permission = "trips:read"
	permTripsCheckin            Permission = "trips:checkin"
	permTripsClose              Permission = "trips:close"
	permTripsUndoCheckin        Permission = "trips:undo_checkin"
	permReportsRead             Permission = "reports:read"
	permAuditLogsRead           Permission = "audit_logs:read"
)

var rolePermissions = map[string][]Permission{
	core.RoleAdmin: {
		permStudentsRead, permStudentsWrite, permStudentsDelete, permStudentsEnrollBiometric,
		permInstitutionsRead, permInstitutionsWrite,
		permBoardingPointsRead, permBoardingPointsWrite,
		permRoutesRead, permRoutesWrite,
		permVehiclesRead, permVehiclesWrite,
		permDriversRead, permDriversWrite,
		permOperationDaysRead, permOperationDaysWrite, permOperationDaysPublish,
		permTripsRead, permTripsCheckin, permTripsClose, permTripsUndoCheckin,
		permReportsRead, permAuditLogsRead,
	},
	core.RoleOperations: {
		permStudentsRead, permStudentsWrite, permStudentsEnrollBiometric,
		permInstitutionsRead,
		permBoardingPointsRead, permBoardingPointsWrite,
		permRoutesRead, permRoutesWrite,
		permVehiclesRead,
		permDriversRead,
		permOperationDaysRead, permOperationDaysWrite,
		permTripsRead,
		permReportsRead,
	},
	core.RoleDriver: {
		permTripsRead, permTripsCheckin, permTripsClose,
	},
}

// hasPermission reports whether role grants perm.
func hasPermission(role string, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

func validRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}
