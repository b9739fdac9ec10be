package authz

import "github.com/chainsub/orchestrator/internal/models"

// InitializeFirstAdmin bootstraps the admin set: it succeeds only when
// the admin set is empty, and the caller becomes the sole initial
// admin.
func (m *Manager) InitializeFirstAdmin(identity string) *models.CoreError {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.admins) != 0 {
		return models.NewError(models.KindUnauthorized, "AdminSetNotEmpty", "admin set already initialized", nil)
	}
	m.admins[identity] = struct{}{}
	return nil
}

// AddAdmin grants identity the Admin role. Idempotent.
func (m *Manager) AddAdmin(identity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admins[identity] = struct{}{}
	delete(m.readOnly, identity)
}

// RemoveAdmin revokes identity's Admin role. An admin cannot remove
// itself.
func (m *Manager) RemoveAdmin(caller, target string) *models.CoreError {
	m.mu.Lock()
	defer m.mu.Unlock()

	if caller == target {
		return models.NewError(models.KindUnauthorized, "CannotRemoveSelf", "an admin cannot remove its own admin role", nil)
	}
	if _, ok := m.admins[target]; !ok {
		return models.NewError(models.KindNotFound, "NotFound", "identity is not an admin", nil)
	}
	delete(m.admins, target)
	return nil
}

// AddReadOnlyUser grants identity the ReadOnly role.
func (m *Manager) AddReadOnlyUser(identity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readOnly[identity] = struct{}{}
}

// RemoveReadOnlyUser revokes identity's ReadOnly role.
func (m *Manager) RemoveReadOnlyUser(identity string) *models.CoreError {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.readOnly[identity]; !ok {
		return models.NewError(models.KindNotFound, "NotFound", "identity is not a read-only user", nil)
	}
	delete(m.readOnly, identity)
	return nil
}

// GetAdmins returns the current admin set.
func (m *Manager) GetAdmins() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.admins))
	for id := range m.admins {
		out = append(out, id)
	}
	return out
}

// GetReadOnlyUsers returns the current read-only set.
func (m *Manager) GetReadOnlyUsers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.readOnly))
	for id := range m.readOnly {
		out = append(out, id)
	}
	return out
}

// RoleOf reports identity's role and whether it holds one at all.
func (m *Manager) RoleOf(identity string) (models.Role, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[identity]; ok {
		return models.RoleAdmin, true
	}
	if _, ok := m.readOnly[identity]; ok {
		return models.RoleReadOnly, true
	}
	return "", false
}

// PermissionsFor returns the fixed permission set for role.
func PermissionsFor(role models.Role) []models.Permission {
	switch role {
		case models.RoleAdmin:
		return models.AdminPermissions
		case models.RoleReadOnly:
		return models.ReadOnlyPermissions
		default:
		return nil
	}
}

// Snapshot returns the admin and read-only sets for a restart snapshot.
func (m *Manager) Snapshot() (admins, readOnly []string) {
	return m.GetAdmins(), m.GetReadOnlyUsers()
}

// Restore repopulates the admin/read-only sets from a restart
// snapshot. Sessions, rate windows, backoff and reputation tables are
// intentionally not restored: they're transient.
func (m *Manager) Restore(admins, readOnly []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admins = make(map[string]struct{}, len(admins))
	for _, a := range admins {
		m.admins[a] = struct{}{}
	}
	m.readOnly = make(map[string]struct{}, len(readOnly))
	for _, r := range readOnly {
		m.readOnly[r] = struct{}{}
	}
}
