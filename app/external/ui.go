package external

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ConserveLee/mapwalk/internal/assets"
	"github.com/ConserveLee/mapwalk/internal/config"
	"github.com/ConserveLee/mapwalk/internal/hotkey"
	"github.com/ConserveLee/mapwalk/internal/logger"
	"github.com/ConserveLee/mapwalk/internal/macro"
	"github.com/kbinani/screenshot"
	"github.com/rs/zerolog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/widget"
)

// NewPanel creates the UI panel for the external route task
func NewPanel(ctx context.Context, store *config.Store, zl zerolog.Logger) fyne.CanvasObject {
	// --- Data Binding ---
	logData := binding.NewStringList()
	statusData := binding.NewString()
	statusData.Set("Status: Ready")

	appLogger := logger.NewAppLogger(zl, logData)
	settings := store.Snapshot()

	// --- UI Components ---
	startBtn := widget.NewButton("Start", nil)
	stopBtn := widget.NewButton("Stop", nil)
	stopBtn.Disable()

	var inputs []fyne.Disableable
	setIdle := func(idle bool) {
		fyne.Do(func() {
			if idle {
				startBtn.Enable()
				stopBtn.Disable()
			} else {
				startBtn.Disable()
				stopBtn.Enable()
			}
			for _, w := range inputs {
				if idle {
					w.Enable()
				} else {
					w.Disable()
				}
			}
		})
	}

	task := NewTask(Options{
		Store:   store,
		Logger:  appLogger,
		LogFunc: func(msg string) { appLogger.Info(msg) },
		StatusFunc: func(msg string) {
			statusData.Set(msg)
			if msg == "Status: Stopped" {
				setIdle(true)
			}
		},
	})

	// 1. Screen Selector
	numDisplays := screenshot.NumActiveDisplays()
	var displayOptions []string
	for i := 0; i < numDisplays; i++ {
		bounds := screenshot.GetDisplayBounds(i)
		displayOptions = append(displayOptions, fmt.Sprintf("Display %d (%dx%d)", i, bounds.Dx(), bounds.Dy()))
	}
	if len(displayOptions) == 0 {
		displayOptions = []string{"Display 0 (Default)"}
	}

	displaySelect := widget.NewSelect(displayOptions, func(selected string) {
		var id int
		if _, err := fmt.Sscanf(selected, "Display %d", &id); err != nil {
			id = 0
		}
		task.SetDisplayID(id)
		appLogger.Info("Switched to Display %d", id)
	})
	if settings.Display < len(displayOptions) {
		displaySelect.SetSelected(displayOptions[settings.Display])
	} else {
		displaySelect.SetSelected(displayOptions[0])
	}

	// 2. Route folder
	folders, err := assets.ListFolders(settings.ModDir)
	if err != nil {
		appLogger.Warn("%v", err)
	}
	folderSelect := widget.NewSelect(folders, func(selected string) {
		if err := store.Set("external_folder", selected); err != nil {
			appLogger.Error("%v", err)
		}
	})
	if settings.ExternalFolder != "" {
		folderSelect.SetSelected(settings.ExternalFolder)
	}

	// 3. Run options
	roundsEntry := widget.NewEntry()
	roundsEntry.SetText(strconv.Itoa(settings.Rounds))
	roundsEntry.OnChanged = func(text string) {
		n, err := strconv.Atoi(text)
		if err != nil {
			return
		}
		if err := store.Set("rounds", n); err != nil {
			appLogger.Warn("%v", err)
		}
	}

	jitterSelect := widget.NewSelect([]string{
		string(macro.JitterDisabled), string(macro.JitterAlways), string(macro.JitterCombatOnly),
	}, func(selected string) {
		if err := store.Set("jitter.mode", selected); err != nil {
			appLogger.Error("%v", err)
		}
	})
	jitterSelect.SetSelected(settings.Jitter.Mode)

	skillSelect := widget.NewSelect([]string{
		config.SkillDisabled, config.SkillCombat, config.SkillUltimate, config.SkillSupport,
	}, func(selected string) {
		if err := store.Set("use_skill", selected); err != nil {
			appLogger.Error("%v", err)
		}
	})
	skillSelect.SetSelected(settings.UseSkill)

	inputs = []fyne.Disableable{displaySelect, folderSelect, roundsEntry}

	// 4. Status & Logs
	statusLabel := widget.NewLabelWithData(statusData)
	statusLabel.TextStyle = fyne.TextStyle{Bold: true}

	logList := widget.NewListWithData(
		logData,
		func() fyne.CanvasObject { return widget.NewLabel("Log entry template") },
		func(i binding.DataItem, o fyne.CanvasObject) { o.(*widget.Label).Bind(i.(binding.String)) },
	)

	// Auto-scroll
	logData.AddListener(binding.NewDataListener(func() {
		list, _ := logData.Get()
		if len(list) > 0 {
			logList.ScrollToBottom()
		}
	}))

	// 5. Buttons
	startBtn.OnTapped = func() {
		if task.Start(ctx) {
			setIdle(false)
		}
	}
	stopBtn.OnTapped = func() {
		stopBtn.Disable()
		go task.Stop()
	}

	if settings.StopHotkey != "" {
		go func() {
			err := hotkey.Listen(ctx, settings.StopHotkey, func() {
				if task.Running() {
					go task.Stop()
				}
			}, appLogger)
			if err != nil {
				appLogger.Warn("Stop hotkey disabled: %v", err)
			}
		}()
	}

	// --- Layout ---
	form := widget.NewForm(
		widget.NewFormItem("Screen", displaySelect),
		widget.NewFormItem("Route", folderSelect),
		widget.NewFormItem("Rounds", roundsEntry),
		widget.NewFormItem("Jitter", jitterSelect),
		widget.NewFormItem("Skill", skillSelect),
	)
	controls := container.NewVBox(
		widget.NewLabel("External route:"),
		form,
		statusLabel,
		container.NewHBox(startBtn, stopBtn, widget.NewLabel(fmt.Sprintf("Stop hotkey: %s", settings.StopHotkey))),
		widget.NewSeparator(),
		widget.NewLabel("Log:"),
	)

	return container.NewBorder(controls, nil, nil, nil, logList)
}
