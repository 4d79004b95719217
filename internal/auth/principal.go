package auth

import "slices"

// Roles.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
	RoleParent  = "parent"
)

// ValidRole reports whether r is a known role.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
		return true
	}
	return false
}

// Principal is the authenticated caller of one request.
type Principal struct {
	UserID     int64    `json:"user_id"`
	Username   string   `json:"username"`
	Role       string   `json:"role"`
	StudentIDs []string `json:"student_ids,omitempty"`
}

// IsStaff reports whether the caller is a teacher or an admin.
func (p Principal) IsStaff() bool {
	return p.Role == RoleTeacher || p.Role == RoleAdmin
}

// CanView reports whether the caller may see studentID's records.
func (p Principal) CanView(studentID string) bool {
	if p.IsStaff() {
		return true
	}
	return slices.Contains(p.StudentIDs, studentID)
}

// SelectStudent picks the student whose records a student or parent view
// shows. Students always get their own record. Parents get the requested
// child when linked, otherwise their first child. Staff get the requested id.
func (p Principal) SelectStudent(requested string) (string, bool) {
	switch p.Role {
	case RoleStudent:
		if len(p.StudentIDs) == 0 {
			return "", false
		}
		return p.StudentIDs[0], true
	case RoleParent:
		if requested != "" && slices.Contains(p.StudentIDs, requested) {
			return requested, true
		}
		if len(p.StudentIDs) == 0 {
			return "", false
		}
		return p.StudentIDs[0], true
	case RoleTeacher, RoleAdmin:
		return requested, requested != ""
	}
	return "", false
}
