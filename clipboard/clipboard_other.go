//go:build !darwin

package clipboard

import "github.com/atotto/clipboard"

func readText() (string, bool, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", false, err
	}
	// atotto cannot distinguish empty from absent; treat empty as absent.
	return text, text != "", nil
}

func writeText(text string) error {
	return clipboard.WriteAll(text)
}

func clearText() error {
	return clipboard.WriteAll("")
}
