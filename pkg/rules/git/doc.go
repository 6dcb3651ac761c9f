// Package git fetches rule sets from a git repository.
//
// A Repository clones the configured branch on the first Sync and pulls on
// every later one, reporting which files changed so callers can skip a
// rebuild when nothing did. Rules are then loaded from RulesDir with the
// ordinary rules loader.
//
//	repo, err := git.NewRepository(&cfg.Compiler.Git, logger)
//	if err != nil {
//	    return err
//	}
//	res, err := repo.Sync(ctx)
//	if err != nil {
//	    return err
//	}
//	sets, err := rules.LoadDirectory(ctx, repo.RulesDir())
//
// Authentication is chosen by GitAuthConfig.Type: "none" for public or local
// repositories, "token" for HTTPS access tokens and "ssh" for a private key
// file.
package git
