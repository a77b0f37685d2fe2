package types

// User es la entidad de usuario. El core de auth sólo la lee: el CRUD de
// usuarios vive en otro servicio.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	IsActive     bool
}

// Platform es una plataforma registrada (tercero que delega login).
type Platform struct {
	ID           int64
	Name         string
	NameHandle   string
	RedirectURIs []string
	// HomepageURL se usa como audience de los tokens emitidos para la
	// plataforma. Si es nil se usa el host configurado del servidor.
	HomepageURL *string
}

// PlatformUser vincula un User con una Platform y sus roles en ella.
type PlatformUser struct {
	ID         int64
	UserID     int64
	PlatformID int64
	Roles      []UserRole
}
