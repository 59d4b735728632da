package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	echoapi "github.com/trezcool/masomo-dashboard/apps/api/echo"
	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/cascade"
	"github.com/trezcool/masomo-dashboard/core/forms"
	refdatasvc "github.com/trezcool/masomo-dashboard/services/refdata"
)

// browse walks `form` against the API at `baseURL`: the LEVEL=ID pairs are selected in level order,
// then the state of every level is printed. The root of identity-rooted forms is the token's subject.
func (cli *commandLine) browse(form, baseURL, token string, pairs []string) error {
	def, ok := forms.Lookup(form)
	if !ok {
		return errors.Wrapf(forms.ErrFormNotFound, "%q", form)
	}

	var values []string
	levels := def.Levels
	if def.IdentityRoot {
		subject, err := tokenSubject(token)
		if err != nil {
			return err
		}
		values = append(values, subject)
		levels = levels[1:]
	}
	selected, err := parsePairs(levels, pairs)
	if err != nil {
		return err
	}
	values = append(values, selected...)

	client := refdatasvc.NewClient(refdatasvc.Options{
		BaseURL:       baseURL,
		Token:         token,
		Timeout:       cli.conf.RefData.Timeout,
		RetryAttempts: cli.conf.RefData.RetryAttempts,
		RetryBackoff:  cli.conf.RefData.RetryBackoff,
		Logger:        cli.logger,
	})
	g, err := def.Graph(client)
	if err != nil {
		return err
	}

	engine := cascade.NewEngine(g, cascade.EngineOptions{EagerRoot: len(values) == 0, Logger: cli.logger})
	defer engine.Close()

	var hydrateErr error
	if len(values) > 0 {
		hydrateErr = engine.Hydrate(context.Background(), values...)
	}
	engine.Wait()

	if err = cli.printStates(engine.States()); err != nil {
		return err
	}
	return hydrateErr
}

// parsePairs returns the ids of LEVEL=ID pairs, which must follow `levels` in order.
func parsePairs(levels, pairs []string) ([]string, error) {
	if len(pairs) > len(levels) {
		return nil, errors.Wrapf(cascade.ErrTooManyValues, "%d pairs", len(pairs))
	}
	values := make([]string, 0, len(pairs))
	for i, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 || core.CleanString(kv[1]) == "" {
			return nil, errors.Errorf("%q: expected LEVEL=ID", pair)
		}
		if level := core.CleanString(kv[0], true /* lower */); level != levels[i] {
			return nil, errors.Errorf("%q: expected level %q", pair, levels[i])
		}
		values = append(values, core.CleanString(kv[1]))
	}
	return values, nil
}

func tokenSubject(token string) (string, error) {
	var claims echoapi.Claims
	if _, _, err := new(jwt.Parser).ParseUnverified(token, &claims); err != nil {
		return "", errors.Wrap(err, "reading token")
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

func (cli *commandLine) printStates(states []cascade.SelectionState) error {
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	for _, st := range states {
		value := "-"
		if opt, ok := st.Selected(); ok {
			value = fmt.Sprintf("%s (%s)", opt.ID, opt.Name)
		} else if st.Value != "" {
			value = st.Value
		}

		var options string
		switch st.Status() {
		case cascade.StatusError:
			options = "error: could not fetch options"
		case cascade.StatusLoading:
			options = "loading..."
		default:
			names := make([]string, 0, len(st.Options))
			for _, opt := range st.Options {
				names = append(names, opt.Name)
			}
			options = strings.Join(names, ", ")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", st.Level, value, options)
	}
	return w.Flush()
}
