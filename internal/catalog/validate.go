package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"home_dispatch/internal/models"
	"home_dispatch/internal/render"
)

// validate returns every problem that prevents devices from becoming the
// active catalog. iconsDir may be empty to skip icon checks.
func validate(devices []models.Device, iconsDir string) []string {
	var problems []string
	seen := make(map[string]bool, len(devices))

	for i, d := range devices {
		where := fmt.Sprintf("devices[%d]", i)
		if strings.TrimSpace(d.ID) == "" {
			problems = append(problems, where+": missing id")
		} else {
			where = fmt.Sprintf("device %q", d.ID)
			if seen[d.ID] {
				problems = append(problems, where+": duplicate id")
			}
			seen[d.ID] = true
		}
		if strings.TrimSpace(d.Name) == "" {
			problems = append(problems, where+": missing name")
		}
		if p := checkIcon(d.Icon, iconsDir); p != "" {
			problems = append(problems, where+": "+p)
		}

		actionSeen := make(map[string]bool, len(d.Actions))
		for j, a := range d.Actions {
			aw := fmt.Sprintf("%s actions[%d]", where, j)
			if strings.TrimSpace(a.ID) == "" {
				problems = append(problems, aw+": missing id")
				continue
			}
			aw = fmt.Sprintf("%s action %q", where, a.ID)
			if actionSeen[a.ID] {
				problems = append(problems, aw+": duplicate id")
			}
			actionSeen[a.ID] = true
			if strings.TrimSpace(a.Name) == "" {
				problems = append(problems, aw+": missing name")
			}
			if _, err := render.Render(a, d); err != nil {
				problems = append(problems, aw+": "+err.Error())
			}
		}
	}
	return problems
}

// checkIcon only verifies icons that look like file names; emoji and other
// inline icons pass through.
func checkIcon(icon, iconsDir string) string {
	if iconsDir == "" || icon == "" || filepath.Ext(icon) == "" {
		return ""
	}
	path, err := IconPath(iconsDir, icon)
	if err != nil {
		return err.Error()
	}
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return fmt.Sprintf("icon %q not found in %s", icon, iconsDir)
	}
	return ""
}
