package updates

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	tooltipKey      = "There are %d updates available"
	notificationKey = "There are %d updates available. Click on the notification icon to show the available updates."

	textCheckFailed = "A problem occurred when checking for the updates."

	textOutdated = "The update information is outdated. This may be caused by network " +
		"problems or by a repository that is no longer available. Please update " +
		"manually by selecting 'Show updates' from the indicator menu, and watching " +
		"for any failing repositories."

	textErrorPrefix = "An error occurred, please run Package Manager from the right-click " +
		"menu or apt-get in a terminal to see what is wrong."

	textUnmetDeps = "This usually means that your installed packages have unmet dependencies"
)

func init() {
	_ = message.Set(language.English, tooltipKey,
		plural.Selectf(1, "%d",
			"=1", "There is %d update available",
			"other", "There are %d updates available",
		))
	_ = message.Set(language.English, notificationKey,
		plural.Selectf(1, "%d",
			"=1", "There is %d update available. Click on the notification icon to show the available update.",
			"other", "There are %d updates available. Click on the notification icon to show the available updates.",
		))
}

var printer = message.NewPrinter(language.English)

// TooltipText is the applet tooltip for n available updates.
func TooltipText(n uint) string {
	return printer.Sprintf(tooltipKey, n)
}

// NotificationText is the notification body for n available updates.
func NotificationText(n uint) string {
	return printer.Sprintf(notificationKey, n)
}

// ErrorText is the tooltip shown when the checker reports msg.
func ErrorText(msg string) string {
	if msg == "" {
		return textErrorPrefix + " " + textUnmetDeps
	}
	return textErrorPrefix + "\nThe error message was: '" + msg + "'. " + textUnmetDeps
}
