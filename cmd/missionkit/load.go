package main

import (
	"fmt"
	"os"

	"missionkit/internal/editor"
	"missionkit/internal/mission"
)

func editorOptions() editor.Options {
	return editor.Options{
		HistoryCapacity: cfg.History.Capacity,
		Bindings: editor.Bindings{
			Undo: cfg.Bindings.Undo,
			Redo: cfg.Bindings.Redo,
		},
		Mission: mission.Options{DescriptorExt: cfg.DescriptorExt, Logger: logger},
		Logger:  logger,
	}
}

func loadMission(path string) (*mission.Mission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m, err := mission.Load(data, editorOptions().Mission)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return m, nil
}

func openEditor(path string) (*editor.Controller, error) {
	m, err := loadMission(path)
	if err != nil {
		return nil, err
	}
	return editor.New(m, editorOptions()), nil
}
