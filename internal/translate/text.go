package translate

import "fmt"

// DemoText is shown instead of a translation when no token is configured.
func DemoText(languageName, english string) string {
	return fmt.Sprintf("[Demo Translation to %s]\n\n%s\n\n[This is a demonstration. In production, this text would be translated to %s using the Sunbird Translate API. To enable real translation, configure your API token.]",
		languageName, english, languageName)
}

// FallbackText is shown when a real translation attempt fails.
func FallbackText(languageName, english string) string {
	return fmt.Sprintf("[Demo Translation to %s]\n\n%s\n\n[This is a demo. In a real scenario, this text would be translated to %s using the Sunbird Translate API.]",
		languageName, english, languageName)
}
