package domain

import (
	"time"
)

const (
	ActionOrderCreated = "order_created"
	ActionOrderStatus  = "order_status"
	ActionPackSaved    = "pack_saved"
	ActionPackDeleted  = "pack_deleted"
)

// SysOprLog is the audit trail of order and catalog changes
type SysOprLog struct {
	ID        int64     `json:"id,string"`
	OprName   string    `gorm:"size:64;index" json:"opr_name"`
	OprIp     string    `gorm:"size:64" json:"opr_ip"`
	OptAction string    `gorm:"size:32;index" json:"opt_action"`
	OptDesc   string    `gorm:"type:text" json:"opt_desc"`
	OptTime   time.Time `gorm:"index" json:"opt_time"`
}

// TableName Specify table name
func (SysOprLog) TableName() string {
	return "sys_opr_log"
}
