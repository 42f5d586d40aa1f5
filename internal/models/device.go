package models

// Device is a controllable entity from the catalog document.
type Device struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	App     string   `json:"app" yaml:"app"`
	Icon    string   `json:"icon" yaml:"icon"`
	Status  string   `json:"status" yaml:"status"` // advisory label, never verified
	Actions []Action `json:"actions" yaml:"actions"`
}

// Action is a named command template owned by a Device.
type Action struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Command string `json:"command" yaml:"command"` // e.g. "打开{app}应用，打开客厅空调"
}

// Field returns the device attribute addressed by a template placeholder.
// The second result is false for names that are not device fields.
func (d Device) Field(name string) (string, bool) {
	switch name {
	case "id":
		return d.ID, true
	case "name":
		return d.Name, true
	case "app":
		return d.App, true
	case "icon":
		return d.Icon, true
	case "status":
		return d.Status, true
	default:
		return "", false
	}
}

// Action returns the action with the given id.
func (d Device) Action(id string) (Action, bool) {
	for _, a := range d.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}

// Clone returns a copy that shares no slices with d.
func (d Device) Clone() Device {
	out := d
	out.Actions = append([]Action(nil), d.Actions...)
	return out
}
