package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/billylighter/telegrab/internal/export"
	"github.com/billylighter/telegrab/internal/store"
)

func runAccountsList(cmd *cobra.Command, args []string) error {
	env, err := bootstrap()
	if err != nil {
		return err
	}
	defer env.Close()

	refs, err := env.Registry.List()
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		fmt.Println("no saved accounts")
		return nil
	}
	for _, ref := range refs {
		line := fmt.Sprintf("%s\t%s", ref.ID, ref.DisplayName)
		if !ref.HasMeta {
			line += "\t(credentials missing)"
		}
		fmt.Println(line)
	}
	return nil
}

func runAccountsRemove(cmd *cobra.Command, args []string) error {
	env, err := bootstrap()
	if err != nil {
		return err
	}
	defer env.Close()

	id := args[0]
	if err := env.Registry.Remove(context.Background(), env.Exec, id); err != nil {
		return fmt.Errorf("failed to remove %s: %w", id, err)
	}
	fmt.Printf("removed %s\n", id)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	env, err := bootstrap()
	if err != nil {
		return err
	}
	defer env.Close()

	accountID := args[0]
	dialogID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("dialog-id must be a number: %w", err)
	}

	ctx := context.Background()

	// Reconnect the saved session so the export can refresh from the
	// network. A dead session still allows a cache-only export.
	authorized, err := env.Flow.Resume(ctx, accountID)
	if err != nil {
		env.Log.Warn("could not reopen session, exporting from cache only")
	} else if !authorized {
		env.Log.Warn("session no longer authorized, exporting from cache only")
	}

	dialog := store.Dialog{AccountID: accountID, DialogID: dialogID}
	if dialogs, derr := env.Store.GetDialogs(ctx, accountID); derr == nil {
		for _, d := range dialogs {
			if d.DialogID == dialogID {
				dialog = d
				break
			}
		}
	}

	opts := export.Options{
		Format:        env.Config.Export.Format,
		MessageLimit:  env.Config.Export.MessageLimit,
		DownloadMedia: env.Config.Export.DownloadMedia,
	}
	if exportFormat != "" {
		opts.Format = exportFormat
	}
	if exportLimit > 0 {
		opts.MessageLimit = exportLimit
	}
	if exportMedia {
		opts.DownloadMedia = true
	}

	path, err := env.Engine.Export(ctx, accountID, dialog, opts)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	fmt.Println(path)
	return nil
}
