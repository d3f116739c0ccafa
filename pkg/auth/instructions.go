package auth

import (
	"fmt"
	"io"
)

// guides maps login-gated providers to where their API keys are issued
var guides = map[string][]string{
	"danbooru": {
		"Log in at https://danbooru.donmai.us",
		"Open My Account > API Key (https://danbooru.donmai.us/profile)",
		"Create a key with the posts:index and explore permissions",
		"Run `nekodl auth login danbooru` and paste your username and the key",
	},
}

// ShowAPIKeyGuide prints the steps to obtain an API key for provider.
// It reports false when no guide exists.
func ShowAPIKeyGuide(w io.Writer, provider string) bool {
	steps, ok := guides[provider]
	if !ok {
		return false
	}

	fmt.Fprintf(w, "Getting an API key for %s:\n", provider)
	for i, step := range steps {
		fmt.Fprintf(w, "  %d. %s\n", i+1, step)
	}
	fmt.Fprintf(w, "\nAlternatively set %sUSERNAME and %sAPI_KEY.\n", EnvPrefix(provider), EnvPrefix(provider))
	return true
}
