package colors

import "github.com/fatih/color"

var (
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Blue   = color.New(color.FgBlue).SprintFunc()
)

// Status colours an http status code for access logs, red for errors & green otherwise
func Status(code int) string {
	if code >= 400 {
		return Red(code)
	}
	return Green(code)
}

// Channel prefixes a log line with the delivery channel name e.g. "[sms] "
func Channel(name string) string {
	return Blue("[" + name + "] ")
}
