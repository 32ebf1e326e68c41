package configs

// Configurable is a config type that knows its own path.
type Configurable interface {
	ConfigPath() string
}

// Get decodes T from the path T declares.
func Get[T Configurable](loader Loader) T {
	var zero T
	return First[T](loader, zero.ConfigPath())
}
