package main

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/masomo-dashboard/apps/api/echo"
	"github.com/trezcool/masomo-dashboard/core"
)

// token prints a signed API token for `identity`.
func (cli *commandLine) token(identity core.Identity, admin bool) error {
	validate, translator := core.NewValidator()
	if err := validate.Struct(identity); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fe := verrs[0]
			return core.NewValidationError(nil, core.FieldError{Field: fe.Field(), Error: fe.Translate(translator)})
		}
		return err
	}

	token, err := echoapi.GenerateToken(cli.conf, echoapi.NewClaims(cli.conf, identity, admin))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cli.out, token)
	return err
}
