package tui

// Icons — each symbol is unique, universally recognized, and in widely-supported Unicode blocks.
// Color is the primary signal; icon shape reinforces meaning.
const (
	IconShield  = "◆" // ◆ — diamond (brand marker)
	IconCheck   = "✔" // ✔ — heavy check mark (approved)
	IconCross   = "✖" // ✖ — heavy multiplication X (cancelled/error)
	IconWarning = "⚠" // ⚠ — warning sign (confirmation required)
	IconInfo    = "ℹ" // ℹ — information source
	IconDot     = "●" // ● — filled circle (running/active)
	IconCircle  = "○" // ○ — hollow circle (inactive)
	IconBlock   = "⊘" // ⊘ — circled division slash (dangerous syntax)
	IconBolt    = "⚡" // ⚡ — high voltage (hit counter)
	IconPattern = "▸" // ▸ — small triangle (trust rule pattern)
)
