package ports

import "context"

type SweepReport struct {
	DanglingAssociations int
	OrphanedFiles        int
	Failed               int
}

type Sweeper interface {
	Sweep(ctx context.Context) (SweepReport, error)
}
