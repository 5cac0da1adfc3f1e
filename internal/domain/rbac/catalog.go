package rbac

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
)

// PermissionCode names one capability in the closed permission catalog.
type PermissionCode string

type Permission struct {
	Code        PermissionCode `json:"code"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
}

const (
	PatientCreate PermissionCode = "patient_create"
	PatientRead   PermissionCode = "patient_read"
	PatientUpdate PermissionCode = "patient_update"
	PatientDelete PermissionCode = "patient_delete"

	VisitCreate PermissionCode = "visit_create"
	VisitRead   PermissionCode = "visit_read"
	VisitUpdate PermissionCode = "visit_update"
	VisitClose  PermissionCode = "visit_close"

	AppointmentCreate PermissionCode = "appointment_create"
	AppointmentRead   PermissionCode = "appointment_read"

	ClinicalNotesCreate PermissionCode = "clinical_notes_create"
	ClinicalNotesRead   PermissionCode = "clinical_notes_read"
	ClinicalNotesUpdate PermissionCode = "clinical_notes_update"

	OrdersCreate PermissionCode = "orders_create"
	OrdersRead   PermissionCode = "orders_read"
	OrdersUpdate PermissionCode = "orders_update"
	ResultsPost  PermissionCode = "results_post"
	ResultsRead  PermissionCode = "results_read"

	PrescriptionCreate   PermissionCode = "prescription_create"
	PrescriptionRead     PermissionCode = "prescription_read"
	PrescriptionDispense PermissionCode = "prescription_dispense"
	InventoryManage      PermissionCode = "inventory_manage"

	InvoiceCreate   PermissionCode = "invoice_create"
	InvoiceRead     PermissionCode = "invoice_read"
	InvoiceFinalize PermissionCode = "invoice_finalize"
	PaymentProcess  PermissionCode = "payment_process"
	ClaimsManage    PermissionCode = "claims_manage"

	ReferralCreate PermissionCode = "referral_create"
	ReferralRead   PermissionCode = "referral_read"
	ReferralManage PermissionCode = "referral_manage"

	StaffManage    PermissionCode = "staff_manage"
	ScheduleManage PermissionCode = "schedule_manage"

	TicketCreate  PermissionCode = "ticket_create"
	TicketRead    PermissionCode = "ticket_read"
	TicketAssign  PermissionCode = "ticket_assign"
	TicketResolve PermissionCode = "ticket_resolve"

	IncidentReport PermissionCode = "incident_report"
	IncidentRead   PermissionCode = "incident_read"
	IncidentManage PermissionCode = "incident_manage"
	AuditConduct   PermissionCode = "audit_conduct"

	WorkorderCreate PermissionCode = "workorder_create"
	WorkorderRead   PermissionCode = "workorder_read"
	WorkorderManage PermissionCode = "workorder_manage"
	AssetManage     PermissionCode = "asset_manage"

	ReportsView    PermissionCode = "reports_view"
	SettingsManage PermissionCode = "settings_manage"
	UserManage     PermissionCode = "user_manage"

	AuditRead   PermissionCode = "audit_read"
	AuditExport PermissionCode = "audit_export"
)

var catalog = struct {
	sync.RWMutex
	perms map[PermissionCode]Permission
}{perms: make(map[PermissionCode]Permission)}

// Register adds a permission to the catalog. Registering a code twice is a
// programming error and panics.
func Register(code PermissionCode, name, description string) {
	catalog.Lock()
	defer catalog.Unlock()
	if code == "" {
		panic("rbac: empty permission code")
	}
	if _, dup := catalog.perms[code]; dup {
		panic(fmt.Sprintf("rbac: permission %q registered twice", code))
	}
	catalog.perms[code] = Permission{Code: code, Name: name, Description: description}
}

// ListPermissions returns the catalog sorted by code.
func ListPermissions() []Permission {
	catalog.RLock()
	defer catalog.RUnlock()
	out := make([]Permission, 0, len(catalog.perms))
	for _, p := range catalog.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func Describe(code PermissionCode) (Permission, error) {
	catalog.RLock()
	defer catalog.RUnlock()
	p, ok := catalog.perms[code]
	if !ok {
		return Permission{}, fmt.Errorf("permission %q: %w", code, apperr.ErrNotFound)
	}
	return p, nil
}

func Known(code PermissionCode) bool {
	catalog.RLock()
	defer catalog.RUnlock()
	_, ok := catalog.perms[code]
	return ok
}

// IsRead reports whether code is a read permission. Read codes end in _read.
func IsRead(code PermissionCode) bool {
	return strings.HasSuffix(string(code), "_read")
}

func init() {
	for _, p := range []Permission{
		{PatientCreate, "Create patients", "Create new patients"},
		{PatientRead, "Read patients", "View patient information"},
		{PatientUpdate, "Update patients", "Update patient information"},
		{PatientDelete, "Delete patients", "Delete patient records"},
		{VisitCreate, "Create visits", "Create new visits"},
		{VisitRead, "Read visits", "View visit information"},
		{VisitUpdate, "Update visits", "Update visit information"},
		{VisitClose, "Close visits", "Close visits"},
		{AppointmentCreate, "Create appointments", "Book appointments"},
		{AppointmentRead, "Read appointments", "View appointments"},
		{ClinicalNotesCreate, "Create clinical notes", "Create clinical notes"},
		{ClinicalNotesRead, "Read clinical notes", "Read clinical notes"},
		{ClinicalNotesUpdate, "Update clinical notes", "Update clinical notes"},
		{OrdersCreate, "Create orders", "Create lab and radiology orders"},
		{OrdersRead, "Read orders", "View orders"},
		{OrdersUpdate, "Update orders", "Update orders"},
		{ResultsPost, "Post results", "Post lab and radiology results"},
		{ResultsRead, "Read results", "View lab and radiology results"},
		{PrescriptionCreate, "Create prescriptions", "Create prescriptions"},
		{PrescriptionRead, "Read prescriptions", "View prescriptions"},
		{PrescriptionDispense, "Dispense", "Dispense medications"},
		{InventoryManage, "Manage inventory", "Manage inventory"},
		{InvoiceCreate, "Create invoices", "Create invoices"},
		{InvoiceRead, "Read invoices", "View invoices"},
		{InvoiceFinalize, "Finalize invoices", "Finalize invoices"},
		{PaymentProcess, "Process payments", "Process payments"},
		{ClaimsManage, "Manage claims", "Manage insurance claims"},
		{ReferralCreate, "Create referrals", "Create referrals"},
		{ReferralRead, "Read referrals", "View referrals"},
		{ReferralManage, "Manage referrals", "Manage referrals"},
		{StaffManage, "Manage staff", "Manage staff"},
		{ScheduleManage, "Manage schedules", "Manage schedules"},
		{TicketCreate, "Create tickets", "Create helpdesk tickets"},
		{TicketRead, "Read tickets", "View helpdesk tickets"},
		{TicketAssign, "Assign tickets", "Assign tickets"},
		{TicketResolve, "Resolve tickets", "Resolve tickets"},
		{IncidentReport, "Report incidents", "Report quality incidents"},
		{IncidentRead, "Read incidents", "View quality incidents"},
		{IncidentManage, "Manage incidents", "Manage quality incidents"},
		{AuditConduct, "Conduct audits", "Conduct quality audits"},
		{WorkorderCreate, "Create work orders", "Create work orders"},
		{WorkorderRead, "Read work orders", "View work orders"},
		{WorkorderManage, "Manage work orders", "Manage work orders"},
		{AssetManage, "Manage assets", "Manage assets"},
		{ReportsView, "View reports", "View reports"},
		{SettingsManage, "Manage settings", "Manage system settings"},
		{UserManage, "Manage users", "Manage users and roles"},
		{AuditRead, "Read audit log", "Query the audit log"},
		{AuditExport, "Export audit log", "Export the audit log as CSV"},
	} {
		Register(p.Code, p.Name, p.Description)
	}
}
