package banner

import (
	"browsebench/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
    ____                                ____                  __
   / __ )_________ _      __________   / __ )___  ____  _____/ /_
  / __  / ___/ __ \ | /| / / ___/ _ \ / __  / _ \/ __ \/ ___/ __ \
 / /_/ / /  / /_/ / |/ |/ (__  )  __// /_/ /  __/ / / / /__/ / / /
/_____/_/   \____/|__/|__/____/\___//_____/\___/_/ /_/\___/_/ /_/ `

	return "\n" + style.Render(ascii) + "\n"
}
