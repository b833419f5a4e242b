package notify

import (
	"fmt"
	"time"

	"github.com/supplydropp/provisioning/internal/domain"
	"github.com/supplydropp/provisioning/internal/order"
	"github.com/supplydropp/provisioning/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const systemOperator = "system"

// Auditor turns order events into sys_opr_log rows
type Auditor struct {
	db *gorm.DB
}

func NewAuditor(db *gorm.DB) *Auditor {
	return &Auditor{db: db}
}

func (a *Auditor) OrderCreated(o domain.Order) {
	source := "cart"
	if o.PackID != nil {
		source = "pack " + *o.PackID
	}
	a.write(o.UserID, domain.ActionOrderCreated,
		fmt.Sprintf("order %s created from %s, %d items, total %.2f", o.ID, source, len(o.Items), o.TotalPrice))
}

func (a *Auditor) OrderStatus(change order.StatusChange) {
	a.write(systemOperator, domain.ActionOrderStatus,
		fmt.Sprintf("order %s %s -> %s", change.Order.ID, change.From, change.Order.Status))
}

// Record writes an arbitrary audit entry
func (a *Auditor) Record(operator, action, desc string) {
	a.write(operator, action, desc)
}

func (a *Auditor) write(operator, action, desc string) {
	err := a.db.Create(&domain.SysOprLog{
		ID:        common.UUIDint64(),
		OprName:   common.IfEmptyStr(operator, systemOperator),
		OprIp:     common.NA,
		OptAction: action,
		OptDesc:   desc,
		OptTime:   time.Now(),
	}).Error
	if err != nil {
		zap.L().Error("write audit log failed", zap.String("action", action), zap.Error(err))
	}
}

// PurgeOlderThan deletes audit rows older than d
func (a *Auditor) PurgeOlderThan(d time.Duration) (int64, error) {
	result := a.db.Where("opt_time < ?", time.Now().Add(-d)).Delete(&domain.SysOprLog{})
	return result.RowsAffected, result.Error
}
