package medication

// iconNames maps the app's icon ids to Ionicons glyph names.
var iconNames = map[string]string{
	"1": "medkit-outline",
	"2": "bandage-outline",
	"3": "flask-outline",
	"4": "gift",
	"5": "heart-outline",
}

// IconName resolves an icon id, using a help glyph for unknown ids.
func IconName(id string) string {
	if name, ok := iconNames[id]; ok {
		return name
	}
	return "help-circle-outline"
}
