package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/timetable/internal/timetable"
	"github.com/jwulff/timetable/internal/ui"
)

// FormMode says what submitting the form does.
type FormMode interface {
	isFormMode()
}

// CreateMode inserts a new lecture.
type CreateMode struct{}

// EditMode replaces Lecture, which currently lives on Day.
type EditMode struct {
	Day     timetable.Day
	Lecture timetable.Lecture
}

func (CreateMode) isFormMode() {}
func (EditMode) isFormMode()   {}

type formField int

const (
	fieldName formField = iota
	fieldDay
	fieldStart
	fieldEnd
	fieldColor
	fieldCount
)

var fieldKeys = [fieldCount]string{
	timetable.FieldName,
	timetable.FieldDay,
	timetable.FieldStart,
	timetable.FieldEnd,
	timetable.FieldColor,
}

var fieldLabels = [fieldCount]string{"Name", "Day", "Start", "End", "Color"}

const overlapAlert = "A lecture already exists at that time."

// Form is the lecture editor shown over the grid.
type Form struct {
	Mode  FormMode
	Name  string
	Day   timetable.Day
	Start int
	End   int
	Color string

	focus  formField
	errors map[string]string
	alert  string
}

// NewCreateForm prefills a form for a new one-hour lecture at (day, hour).
func NewCreateForm(day timetable.Day, hour int) *Form {
	end := hour + 1
	if end > timetable.LastHour {
		end = timetable.LastHour
	}
	return &Form{
		Mode:  CreateMode{},
		Day:   day,
		Start: hour,
		End:   end,
		Color: timetable.DefaultColor,
	}
}

// NewEditForm prefills a form with an existing lecture.
func NewEditForm(day timetable.Day, l timetable.Lecture) *Form {
	return &Form{
		Mode:  EditMode{Day: day, Lecture: l},
		Name:  l.Name,
		Day:   day,
		Start: l.Start,
		End:   l.End,
		Color: l.Color,
	}
}

// Draft returns the lecture fields as entered.
func (f *Form) Draft() timetable.Draft {
	return timetable.Draft{
		Interval: timetable.Interval{Start: f.Start, End: f.End},
		Name:     f.Name,
		Color:    f.Color,
	}
}

// Validate runs the field checks and records their messages on the form.
func (f *Form) Validate() error {
	f.errors = nil
	f.alert = ""

	err := f.Draft().Validate()
	if !f.Day.Valid() {
		verr := &timetable.ValidationError{Fields: map[string]string{}}
		errors.As(err, &verr)
		verr.Fields[timetable.FieldDay] = "choose a day"
		err = verr
	}

	var verr *timetable.ValidationError
	if errors.As(err, &verr) {
		f.errors = verr.Fields
	}
	return err
}

// SetError records a failed submit. Overlaps become the alert, validation
// errors attach to their fields; anything else is returned for the caller.
func (f *Form) SetError(err error) error {
	var verr *timetable.ValidationError
	switch {
	case errors.Is(err, timetable.ErrOverlap):
		f.alert = overlapAlert
		return nil
	case errors.As(err, &verr):
		f.errors = verr.Fields
		return nil
	}
	return err
}

// FieldError returns the inline message for a field key.
func (f *Form) FieldError(key string) string {
	return f.errors[key]
}

// Alert returns the blocking message shown above the form buttons.
func (f *Form) Alert() string { return f.alert }

// formKeyResult tells the model what a key press meant.
type formKeyResult int

const (
	formContinue formKeyResult = iota
	formSubmit
	formCancel
)

// HandleKey edits the focused field.
func (f *Form) HandleKey(msg tea.KeyMsg) formKeyResult {
	switch msg.String() {
	case KeyEsc:
		return formCancel
	case KeyEnter, KeyCtrlS:
		return formSubmit
	case KeyTab, KeyDown:
		f.focus = (f.focus + 1) % fieldCount
		return formContinue
	case KeyShiftTab, KeyUp:
		f.focus = (f.focus + fieldCount - 1) % fieldCount
		return formContinue
	case KeyLeft:
		f.cycle(-1)
		return formContinue
	case KeyRight:
		f.cycle(1)
		return formContinue
	case KeyBackspace:
		f.backspace()
		return formContinue
	}

	switch msg.Type {
	case tea.KeyRunes:
		f.typeText(string(msg.Runes))
	case tea.KeySpace:
		f.typeText(" ")
	}
	return formContinue
}

func (f *Form) cycle(delta int) {
	switch f.focus {
	case fieldDay:
		i := f.Day.Index()
		if i < 0 {
			i = 0
		}
		n := len(timetable.Days)
		f.Day = timetable.Days[(i+delta+n)%n]
	case fieldStart:
		f.Start = wrapHour(f.Start+delta, timetable.FirstHour, timetable.LastHour-1)
	case fieldEnd:
		f.End = wrapHour(f.End+delta, timetable.FirstHour+1, timetable.LastHour)
	}
}

func wrapHour(h, lo, hi int) int {
	if h < lo {
		return hi
	}
	if h > hi {
		return lo
	}
	return h
}

func (f *Form) typeText(s string) {
	switch f.focus {
	case fieldName:
		f.Name += s
	case fieldColor:
		f.Color += s
	case fieldStart, fieldEnd:
		// Digits type the hour directly, e.g. "1" then "4" for 14.
		if _, err := strconv.Atoi(s); err != nil {
			return
		}
		cur := &f.Start
		if f.focus == fieldEnd {
			cur = &f.End
		}
		if next, err := strconv.Atoi(strconv.Itoa(*cur) + s); err == nil && next <= timetable.LastHour {
			*cur = next
		} else {
			*cur, _ = strconv.Atoi(s)
		}
	}
}

func (f *Form) backspace() {
	switch f.focus {
	case fieldName:
		f.Name = dropLastRune(f.Name)
	case fieldColor:
		f.Color = dropLastRune(f.Color)
	}
}

func dropLastRune(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}

// View renders the form panel.
func (f *Form) View(width int) string {
	title := "NEW LECTURE"
	if _, ok := f.Mode.(EditMode); ok {
		title = "EDIT LECTURE"
	}

	lines := []string{ui.PanelTitleActiveStyle.Render(title)}
	for i := formField(0); i < fieldCount; i++ {
		marker := "  "
		label := fmt.Sprintf("%-6s", fieldLabels[i]+":")
		if i == f.focus {
			marker = ui.SelectedStyle.Render("> ")
			label = ui.SelectedStyle.Render(label)
		}
		lines = append(lines, marker+label+" "+f.fieldValue(i))

		if msg := f.errors[fieldKeys[i]]; msg != "" {
			lines = append(lines, "         "+ui.ErrorTextStyle.Render(msg))
		}
	}

	if f.alert != "" {
		lines = append(lines, "", ui.AlertStyle.Render("! "+f.alert))
	}

	lines = append(lines, "",
		ui.FooterKeyStyle.Render("Enter")+ui.FooterDescStyle.Render(" Save")+"  "+
			ui.FooterKeyStyle.Render("Esc")+ui.FooterDescStyle.Render(" Cancel")+"  "+
			ui.FooterKeyStyle.Render("Tab")+ui.FooterDescStyle.Render(" Next")+"  "+
			ui.FooterKeyStyle.Render("←→")+ui.FooterDescStyle.Render(" Change"))

	for i, l := range lines {
		lines[i] = truncateToWidth(l, width)
	}
	return strings.Join(lines, "\n")
}

func (f *Form) fieldValue(i formField) string {
	cursor := ""
	if i == f.focus {
		cursor = "▌"
	}
	switch i {
	case fieldName:
		return f.Name + cursor
	case fieldDay:
		return "‹ " + f.Day.Label() + " ›"
	case fieldStart:
		return fmt.Sprintf("‹ %d ›", f.Start)
	case fieldEnd:
		return fmt.Sprintf("‹ %d ›", f.End)
	default:
		return f.Color + cursor + " " + ui.Swatch(f.Color)
	}
}
