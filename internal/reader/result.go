package reader

// Result is the outcome of an authenticated adaptor call. Token is non-nil
// only when the call had to refresh the access token; callers persist it
// and continue with an adaptor built from it.
type Result[T any] struct {
	Value T
	Token *Token
}

// Refreshed reports whether the call produced a new access token.
func (r Result[T]) Refreshed() bool {
	return r.Token != nil
}

// Session holds the token for the duration of one adaptor operation.
// Every page or sub-request of that operation sees a refreshed token as
// soon as it is obtained. A Session is never shared between operations.
type Session struct {
	token     Token
	refreshed bool
}

// NewSession starts an operation with a copy of token.
func NewSession(token Token) *Session {
	token.Refreshed = false
	return &Session{token: token}
}

// AccessToken returns the token currently used for requests.
func (s *Session) AccessToken() string {
	return s.token.AccessToken
}

// RefreshToken returns the stored refresh token, if any.
func (s *Session) RefreshToken() string {
	return s.token.RefreshToken
}

func (s *Session) update(accessToken string) {
	s.token.AccessToken = accessToken
	s.token.Refreshed = true
	s.refreshed = true
}

// Refreshed returns the new token when a refresh happened, nil otherwise.
func (s *Session) Refreshed() *Token {
	if !s.refreshed {
		return nil
	}
	t := s.token
	return &t
}

// Finish wraps value together with any refreshed token.
func Finish[T any](s *Session, value T) Result[T] {
	return Result[T]{Value: value, Token: s.Refreshed()}
}

// Fail returns the zero result for an operation that failed, still carrying
// a token obtained by a successful refresh before the failure.
func Fail[T any](s *Session, err error) (Result[T], error) {
	var zero T
	return Result[T]{Value: zero, Token: s.Refreshed()}, err
}
