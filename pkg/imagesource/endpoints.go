package imagesource

import (
	"net/url"
	"strings"
)

const (
	// PostsEndpoint lists a user's recent posts
	PostsEndpoint = "/v1/posts"

	// UsernameParam accepts a username, numeric id or profile URL
	UsernameParam = "username_or_id_or_url"

	// MaxImageBytes caps a proxied image body
	MaxImageBytes = 32 << 20
)

// PostsURL builds the posts request URL for username
func PostsURL(baseURL, username string) string {
	params := url.Values{}
	params.Set(UsernameParam, username)
	return strings.TrimRight(baseURL, "/") + PostsEndpoint + "?" + params.Encode()
}

// SanitizeUsername strips a leading @, surrounding spaces and trailing slashes
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "@")
	return strings.TrimRight(username, "/ ")
}

// ValidateImageURL reports whether raw is an absolute http(s) URL
func ValidateImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
