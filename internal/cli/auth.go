package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

func newFlagSet(c *cli, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError("%s: %v", fs.Name(), err)
	}
	return nil
}

func runServe(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet(c, "serve")
	listen := fs.String("listen", "", "listen address (default $SHELF_LISTEN_ADDR or 127.0.0.1:8080)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *listen != "" {
		c.app.Config().ListenAddr = *listen
	}
	return c.app.Serve(ctx)
}

func runRegister(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet(c, "register")
	username := fs.String("username", "", "user name")
	email := fs.String("email", "", "email address")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var err error
	if *username == "" {
		if *username, err = c.prompt("Username: "); err != nil {
			return err
		}
	}
	if *email == "" {
		if *email, err = c.prompt("Email: "); err != nil {
			return err
		}
	}
	password, err := c.promptPassword("Password: ")
	if err != nil {
		return err
	}

	u := domain.User{Username: *username, Email: *email, Password: password}
	if err := c.app.Client().Register(ctx, u); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Account created, you can now log in.")
	return nil
}

func runLogin(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet(c, "login")
	email := fs.String("email", "", "email address")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var err error
	if *email == "" {
		if *email, err = c.prompt("Email: "); err != nil {
			return err
		}
	}
	password, err := c.promptPassword("Password: ")
	if err != nil {
		return err
	}

	snap, err := c.app.SignIn(ctx, *email, password)
	if err != nil {
		return err
	}
	if c.json {
		return c.printJSON(snap)
	}
	fmt.Fprintf(c.stdout, "Logged in as %s.\n", snap.User.Username)
	return nil
}

func runLogout(ctx context.Context, c *cli, _ []string) error {
	c.app.Session().Logout(ctx)
	fmt.Fprintln(c.stdout, "Logged out.")
	return nil
}

func runWhoami(_ context.Context, c *cli, _ []string) error {
	snap := c.app.Session().Snapshot()
	if c.json {
		return c.printJSON(snap)
	}
	if !snap.IsAuthenticated {
		return domain.ErrNotAuthenticated
	}
	fmt.Fprintf(c.stdout, "%s <%s> (id %d, profile %s, storage %s)\n",
		snap.User.Username, snap.User.Email, snap.User.ID, c.app.Config().Profile, c.app.StorageName())
	return nil
}

func runRefresh(ctx context.Context, c *cli, _ []string) error {
	if !c.app.Session().IsAuthenticated() {
		return domain.ErrNotAuthenticated
	}
	if _, err := c.app.Session().RefreshToken(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Token refreshed.")
	return nil
}
