package wizard

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	"TripPlanner/internal/model"
	"TripPlanner/internal/model/dto"
	"TripPlanner/pkg/errors"
	"TripPlanner/utils"
)

// StepName 向导步骤名
type StepName string

const (
	StepBasics    StepName = "basics"    // 目的地与日期
	StepTransport StepName = "transport" // 交通方式与预算
	StepPlaces    StepName = "places"    // 地点列表
	StepSharing   StepName = "sharing"   // 住宿、备注与可见性
)

// Step 向导中的一步，check 是对草稿的纯函数校验。
type Step struct {
	Name  StepName
	Title string
	check func(d *dto.PlanDraft) error
}

// Validate 校验该步涉及的字段，返回第一个失败字段的校验错误。
func (s Step) Validate(d *dto.PlanDraft) error {
	return s.check(d)
}

var steps = []Step{
	{Name: StepBasics, Title: "Where and when", check: checkBasics},
	{Name: StepTransport, Title: "Getting there", check: checkTransport},
	{Name: StepPlaces, Title: "Places to visit", check: checkPlaces},
	{Name: StepSharing, Title: "Stay and sharing", check: checkSharing},
}

// Steps 按顺序返回全部步骤。
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// Lookup 按名称查找步骤。
func Lookup(name string) (Step, bool) {
	for _, s := range steps {
		if string(s.Name) == name {
			return s, true
		}
	}
	return Step{}, false
}

// Next 返回下一步，最后一步返回 false。
func Next(name StepName) (StepName, bool) {
	for i, s := range steps {
		if s.Name == name && i+1 < len(steps) {
			return steps[i+1].Name, true
		}
	}
	return "", false
}

// Validate 按步骤顺序校验整份草稿。
func Validate(d *dto.PlanDraft) error {
	for _, s := range steps {
		if err := s.check(d); err != nil {
			return err
		}
	}
	return nil
}

func checkBasics(d *dto.PlanDraft) error {
	if strings.TrimSpace(d.Destination) == "" {
		return errors.Invalid("destination", "destination is required")
	}

	start, err := parseDate("start_date", d.StartDate)
	if err != nil {
		return err
	}
	end, err := parseDate("end_date", d.EndDate)
	if err != nil {
		return err
	}
	if start.After(end) {
		return errors.Invalid("start_date", "start date must not be after end date")
	}
	return nil
}

func checkTransport(d *dto.PlanDraft) error {
	if strings.TrimSpace(d.Vehicle) == "" {
		return errors.Invalid("vehicle", "vehicle is required")
	}
	if strings.TrimSpace(string(d.ExpectedExpenditure)) == "" {
		return errors.Invalid("expected_expenditure", "expected expenditure is required")
	}
	_, err := parseAmount("expected_expenditure", d.ExpectedExpenditure)
	return err
}

func checkPlaces(d *dto.PlanDraft) error {
	if len(d.Places) == 0 {
		return errors.Invalid("places", "at least one place is required")
	}
	for i, p := range d.Places {
		if strings.TrimSpace(p.Name) == "" {
			return errors.Invalid(fmt.Sprintf("places[%d].name", i), "place name is required")
		}
		if strings.TrimSpace(p.Duration) == "" {
			return errors.Invalid(fmt.Sprintf("places[%d].duration", i), "place duration is required")
		}
		if _, err := parseAmount(fmt.Sprintf("places[%d].expenses_places", i), p.Expense); err != nil {
			return err
		}
	}
	return nil
}

// checkSharing 只有 invited 可见性才校验邀请邮箱，其他可见性忽略该字段
func checkSharing(d *dto.PlanDraft) error {
	visibility := visibilityOf(d)
	if !visibility.Valid() {
		return errors.Invalid("visibility", "visibility must be one of private, invited, public")
	}
	if visibility != model.VisibilityInvited {
		return nil
	}
	_, err := NormalizeEmails(d.InvitedEmails)
	return err
}

// Apply 校验草稿并写入 plan 的可编辑字段。
func Apply(d *dto.PlanDraft, plan *model.TravelPlan) error {
	if err := Validate(d); err != nil {
		return err
	}

	start, _ := utils.ParseISODate(strings.TrimSpace(d.StartDate))
	end, _ := utils.ParseISODate(strings.TrimSpace(d.EndDate))
	expenditure, _ := parseAmount("expected_expenditure", d.ExpectedExpenditure)

	places := make([]model.Place, 0, len(d.Places))
	for _, p := range d.Places {
		expense, _ := parseAmount("", p.Expense)
		places = append(places, model.Place{
			Name:     strings.TrimSpace(p.Name),
			Duration: strings.TrimSpace(p.Duration),
			Notes:    strings.TrimSpace(p.Notes),
			Expense:  expense,
		})
	}

	visibility := visibilityOf(d)
	emails := []string{}
	if visibility == model.VisibilityInvited {
		emails, _ = NormalizeEmails(d.InvitedEmails)
	}

	plan.Destination = strings.TrimSpace(d.Destination)
	plan.StartDate = datatypes.Date(start)
	plan.EndDate = datatypes.Date(end)
	plan.Vehicle = strings.TrimSpace(d.Vehicle)
	plan.ExpectedExpenditure = expenditure
	plan.Accommodation = strings.TrimSpace(d.Accommodation)
	plan.AdditionalNotes = strings.TrimSpace(d.AdditionalNotes)
	plan.Places = datatypes.JSONSlice[model.Place](places)
	plan.Visibility = visibility
	plan.InvitedEmails = datatypes.JSONSlice[string](emails)
	return nil
}

// FromPlan 将已保存的行程还原为草稿，供局部更新合并。
func FromPlan(p *model.TravelPlan) dto.PlanDraft {
	places := make([]dto.PlaceInput, 0, len(p.Places))
	for _, pl := range p.Places {
		places = append(places, dto.PlaceInput{
			Name:     pl.Name,
			Duration: pl.Duration,
			Notes:    pl.Notes,
			Expense:  formatAmount(pl.Expense),
		})
	}

	return dto.PlanDraft{
		Destination:         p.Destination,
		StartDate:           utils.FormatISODate(p.Start()),
		EndDate:             utils.FormatISODate(p.End()),
		Vehicle:             p.Vehicle,
		ExpectedExpenditure: formatAmount(p.ExpectedExpenditure),
		Accommodation:       p.Accommodation,
		AdditionalNotes:     p.AdditionalNotes,
		Places:              places,
		Visibility:          string(p.Visibility),
		InvitedEmails:       append([]string(nil), p.InvitedEmails...),
	}
}

// Merge 将更新请求中非 nil 的字段覆盖到草稿上，places 整体替换。
func Merge(d *dto.PlanDraft, req dto.UpdatePlanRequest) {
	if req.Destination != nil {
		d.Destination = *req.Destination
	}
	if req.StartDate != nil {
		d.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		d.EndDate = *req.EndDate
	}
	if req.Vehicle != nil {
		d.Vehicle = *req.Vehicle
	}
	if req.ExpectedExpenditure != nil {
		d.ExpectedExpenditure = *req.ExpectedExpenditure
	}
	if req.Accommodation != nil {
		d.Accommodation = *req.Accommodation
	}
	if req.AdditionalNotes != nil {
		d.AdditionalNotes = *req.AdditionalNotes
	}
	if req.Places != nil {
		d.Places = append([]dto.PlaceInput(nil), (*req.Places)...)
	}
	if req.Visibility != nil {
		d.Visibility = *req.Visibility
	}
	if req.InvitedEmails != nil {
		d.InvitedEmails = append([]string(nil), (*req.InvitedEmails)...)
	}
}

// NormalizeEmails 去空格、转小写、去重并丢弃空项，单项内允许逗号分隔多个地址，
// 任一非法地址返回校验错误。
func NormalizeEmails(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, entry := range in {
		for _, raw := range utils.SplitEmails(entry) {
			email := utils.NormalizeEmail(raw)
			if !utils.ValidateEmail(email) {
				return nil, errors.Invalid("invited_emails", fmt.Sprintf("%q is not a valid email address", raw))
			}
			if _, dup := seen[email]; dup {
				continue
			}
			seen[email] = struct{}{}
			out = append(out, email)
		}
	}
	return out, nil
}

func visibilityOf(d *dto.PlanDraft) model.Visibility {
	v := strings.ToLower(strings.TrimSpace(d.Visibility))
	if v == "" {
		return model.VisibilityPrivate
	}
	return model.Visibility(v)
}

func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.Invalid(field, strings.ReplaceAll(field, "_", " ")+" is required")
	}
	t, err := utils.ParseISODate(s)
	if err != nil {
		return time.Time{}, errors.Invalid(field, "must be an ISO-8601 date")
	}
	return t, nil
}

// parseAmount 空值视为 0，其余必须是非负有限数。
func parseAmount(field string, a dto.Amount) (float64, error) {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Invalid(field, "must be a number")
	}
	if v < 0 {
		return 0, errors.Invalid(field, "must not be negative")
	}
	return v, nil
}

func formatAmount(v float64) dto.Amount {
	return dto.Amount(strconv.FormatFloat(v, 'f', -1, 64))
}
