// Package useragent supplies realistic browser identities for page loads and downloads.
package useragent

import "math/rand"

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.1 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.5845.97 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.5845.97 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
}

// AcceptLanguage is sent with every page load; some landing pages vary rendering by it.
const AcceptLanguage = "en-US,en;q=0.9"

// Random returns a desktop Chrome user agent.
func Random() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// All returns a copy of the pool.
func All() []string {
	return append([]string(nil), userAgents...)
}
