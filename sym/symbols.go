// Package sym defines the glyphs used to tag CLI output and structured logs.
// They are stable across the CLI, the JSON API and log streams.
package sym

// Subsystem glyphs.
const (
	AM       = "≡" // am: configuration and system settings
	Pulse    = "꩜" // scheduler ticks and schedule transitions
	PulseOn  = "✿" // ticker startup
	PulseOff = "❀" // ticker shutdown
	DB       = "⊔" // database/storage layer
	History  = "⟲" // change history
	Access   = "⌬" // permission resolution
	Domain   = "◫" // domain records
)

// SubsystemToCommand maps each glyph with a CLI command to the command name.
var SubsystemToCommand = map[string]string{
	AM:      "am",
	Pulse:   "pulse",
	DB:      "db",
	History: "history",
	Access:  "access",
	Domain:  "domain",
}

// CommandToSubsystem is the reverse of SubsystemToCommand.
var CommandToSubsystem = func() map[string]string {
	m := make(map[string]string, len(SubsystemToCommand))
	for glyph, cmd := range SubsystemToCommand {
		m[cmd] = glyph
	}
	return m
}()

// Label prefixes text with the glyph registered for a command, if any.
func Label(command, text string) string {
	if glyph, ok := CommandToSubsystem[command]; ok {
		return glyph + " " + text
	}
	return text
}
