package cli

import (
	"context"

	"github.com/ConserveLee/mapwalk/app/external"
	"github.com/ConserveLee/mapwalk/app/tools"
	"github.com/ConserveLee/mapwalk/internal/logger"
	"github.com/spf13/cobra"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
)

func init() {
	rootCmd.AddCommand(guiCmd)
}

var guiCmd = &cobra.Command{
	Use:   "gui",
	Short: "Open the desktop panel",
	RunE: func(cmd *cobra.Command, args []string) error {
		zl := consoleLogger()
		log := logger.NewAppLogger(zl, nil)

		store, err := loadStore(log.With("config"))
		if err != nil {
			return err
		}
		if err := store.Watch(); err != nil {
			log.Warn("Config changes will not be picked up: %v", err)
		}
		defer store.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		myApp := app.New()
		myWindow := myApp.NewWindow("mapwalk")
		myWindow.Resize(fyne.NewSize(500, 600))

		tabs := container.NewAppTabs(
			container.NewTabItem("External Route", external.NewPanel(ctx, store, zl)),
			container.NewTabItem("Templates", tools.NewToolsPanel(myWindow, store, log.With("tools"))),
		)
		tabs.SetTabLocation(container.TabLocationTop)

		myWindow.SetContent(tabs)
		myWindow.ShowAndRun()
		return nil
	},
}
