package core

// Identity is the authenticated principal (teacher | admin) acting on the dashboard.
// Loggers attach it to reported events.
type Identity struct {
	ID       string `json:"id" validate:"required"`
	Username string `json:"username,omitempty" validate:"omitempty,alphanum_"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
}

// Logger is any leveled logger.
// expected args: error, map[string]interface{}, Identity
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
