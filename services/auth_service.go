package services

import (
	"context"
	"errors"
	"fmt"

	"sortashort_server/logging"
	"sortashort_server/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
	gobreaker "github.com/sony/gobreaker/v2"
)

// IdentityProvider is the subset of the Cognito client used for sign-up and sign-in.
type IdentityProvider interface {
	SignUp(ctx context.Context, in *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, in *cognitoidentityprovider.ConfirmSignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
	InitiateAuth(ctx context.Context, in *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
}

// AuthService delegates credentials to the identity provider.
type AuthService struct {
	Provider IdentityProvider
	ClientID string
	Store    store.Store
	breaker  *gobreaker.CircuitBreaker[any]
}

func NewAuthService(p IdentityProvider, clientID string, s store.Store) *AuthService {
	return &AuthService{Provider: p, ClientID: clientID, Store: s, breaker: newBreaker("cognito")}
}

// SignInResult is returned by SignIn.
type SignInResult struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

// SignUp registers email with the provider.
func (as *AuthService) SignUp(ctx context.Context, email, password string) error {
	_, err := execute(as.breaker, func() (*cognitoidentityprovider.SignUpOutput, error) {
		out, err := as.Provider.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
			ClientId: aws.String(as.ClientID),
			Username: aws.String(email),
			Password: aws.String(password),
			UserAttributes: []types.AttributeType{
				{Name: aws.String("email"), Value: aws.String(email)},
			},
		})
		return out, providerError("sign up", err)
	})
	if err != nil {
		return err
	}
	logging.Ctx(ctx).Info().Str("email", email).Msg("user signed up")
	return nil
}

// Confirm submits the verification code mailed on sign-up.
func (as *AuthService) Confirm(ctx context.Context, email, code string) error {
	_, err := execute(as.breaker, func() (*cognitoidentityprovider.ConfirmSignUpOutput, error) {
		out, err := as.Provider.ConfirmSignUp(ctx, &cognitoidentityprovider.ConfirmSignUpInput{
			ClientId:         aws.String(as.ClientID),
			Username:         aws.String(email),
			ConfirmationCode: aws.String(code),
		})
		return out, providerError("confirm sign up", err)
	})
	return err
}

// SignIn runs the USER_PASSWORD_AUTH flow. The stored username is attached
// when the profile can be read; a failed read does not fail the sign-in.
func (as *AuthService) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	out, err := execute(as.breaker, func() (*cognitoidentityprovider.InitiateAuthOutput, error) {
		out, err := as.Provider.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
			AuthFlow: types.AuthFlowTypeUserPasswordAuth,
			ClientId: aws.String(as.ClientID),
			AuthParameters: map[string]string{
				"USERNAME": email,
				"PASSWORD": password,
			},
		})
		return out, providerError("sign in", err)
	})
	if err != nil {
		return nil, err
	}
	if out.AuthenticationResult == nil || out.AuthenticationResult.AccessToken == nil {
		return nil, &UpstreamError{Message: fmt.Sprintf("sign in requires challenge %s", out.ChallengeName), CallerFault: true}
	}

	res := &SignInResult{Token: *out.AuthenticationResult.AccessToken, Email: email}
	if p, err := as.Store.GetProfile(ctx, email); err == nil {
		res.Username = p.Username
	} else if !errors.Is(err, store.ErrNotFound) {
		logging.Ctx(ctx).Warn().Err(err).Str("email", email).Msg("failed to load username on sign in")
	}
	return res, nil
}

// providerError classifies a provider failure. API errors answered by the
// provider are the caller's fault and keep the provider message.
func providerError(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorFault() != smithy.FaultServer {
		msg := apiErr.ErrorMessage()
		if msg == "" {
			msg = apiErr.ErrorCode()
		}
		return &UpstreamError{Message: msg, CallerFault: true, Cause: err}
	}
	return &UpstreamError{Message: fmt.Sprintf("failed to %s: %v", op, err), Cause: err}
}
