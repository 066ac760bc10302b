package repository

import (
	"github.com/racunko/racunko-backend/internal/service/ingestion"
	"github.com/racunko/racunko-backend/internal/service/reconciliation"
	"github.com/racunko/racunko-backend/internal/service/retention"
)

// The one PostgreSQL repository backs every storage interface the services
// consume.
var (
	_ reconciliation.BillRepository = (*BillRepository)(nil)
	_ retention.BillRepository      = (*BillRepository)(nil)
	_ ingestion.BillStore           = (*BillRepository)(nil)
)
