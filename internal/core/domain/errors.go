package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrFetchProfile       = errors.New("fetch profile failed")
	ErrUpdateProfile      = errors.New("update profile failed")
	ErrCreateUser         = errors.New("create user failed")

	ErrNoSession         = errors.New("no session")
	ErrSessionNotFound   = errors.New("session not found")
	ErrStaleSession      = errors.New("session was modified concurrently")
	ErrOperationInFlight = errors.New("operation already in flight")
	ErrForbidden         = errors.New("access forbidden")
	ErrInvalidTransition = errors.New("invalid operation state transition")
)

// Messages shown to the user. Every failure of an operation collapses into
// one message per call site.
const (
	MsgInvalidCredentials = "Email ou Senha incorretos"
	MsgFetchProfile       = "Falha ao buscar dados do usuário"
	MsgUpdateProfile      = "Falha ao atualizar perfil"
	MsgCreateUser         = "Falha ao criar usuário"
	MsgInFlight           = "Aguarde a conclusão da operação anterior"
	MsgForbidden          = "Acesso negado"
	MsgGeneric            = "Ocorreu um erro"

	MsgProfileUpdated = "Perfil atualizado com sucesso"
	MsgUserCreated    = "Usuário criado com sucesso"
)

// Message maps an error to the text rendered next to the form that caused it.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return MsgInvalidCredentials
	case errors.Is(err, ErrFetchProfile):
		return MsgFetchProfile
	case errors.Is(err, ErrUpdateProfile):
		return MsgUpdateProfile
	case errors.Is(err, ErrCreateUser):
		return MsgCreateUser
	case errors.Is(err, ErrOperationInFlight):
		return MsgInFlight
	case errors.Is(err, ErrForbidden):
		return MsgForbidden
	default:
		return MsgGeneric
	}
}
