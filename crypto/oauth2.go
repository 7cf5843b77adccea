package crypto

// Oauth2StateLength follows the usual 32 character recommendation for an
// unguessable OAuth2 state value.
const Oauth2StateLength = 32

// Oauth2State returns a fresh random state parameter. The state ties the
// authorization request to its callback.
func Oauth2State() string {
	return RandomString(Oauth2StateLength, AlphanumericAlphabet)
}
