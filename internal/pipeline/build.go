package pipeline

import (
	"fmt"

	"missionkit/internal/archive"
)

// Build drives raw through every construction stage, claiming exclusive
// prerequisites from pool and reading shared ones.
func Build(raw Raw, pool *archive.Archive) (*Object, error) {
	step, err := raw.Begin()
	if err != nil {
		return nil, err
	}

	for step.Object == nil {
		prereqs, err := step.Next.Prerequisites()
		if err != nil {
			return nil, err
		}

		files := archive.New()
		for _, p := range prereqs {
			var data []byte
			if p.Shared {
				data, err = pool.Read(p.Name)
			} else {
				data, err = pool.Claim(p.Name)
			}
			if err != nil {
				return nil, fmt.Errorf("%s: %w", raw.Kind, err)
			}
			if err := files.Add(p.Name, data); err != nil {
				return nil, fmt.Errorf("%s: %w", raw.Kind, err)
			}
		}

		if step, err = step.Next.Construct(files); err != nil {
			return nil, err
		}
	}

	return step.Object, nil
}
