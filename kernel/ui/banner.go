package ui

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/michaelquigley/figlet/figletlib"
)

const bannerFont = "standard"

// Banner prints the project banner with a figlet font from fontDir. Without a
// usable font it falls back to a framed line.
func (c *Console) Banner(fontDir, title, subtitle string) {
	rendered := ""
	if fontDir != "" {
		if _, err := os.Stat(filepath.Join(fontDir, bannerFont+".flf")); err == nil {
			if font, err := figletlib.GetFontByName(fontDir, bannerFont); err == nil {
				rendered = figletlib.SprintMsg(title, font, 100, font.Settings(), "left")
			}
		}
	}
	if rendered == "" {
		line := strings.Repeat("=", len(title)+4)
		rendered = line + "\n  " + title + "\n" + line + "\n"
	}
	c.Printf("%s", c.Info(rendered))
	if subtitle != "" {
		c.Printf("%s\n\n", subtitle)
	}
}
