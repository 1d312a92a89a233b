package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"churchledger/internal/auth"
	"churchledger/internal/core"
	"churchledger/internal/finance"
	"churchledger/pkg/domain"

	"github.com/shopspring/decimal"
)

var errCancelled = errors.New("cancelled")

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"church register": churchRegister,
	"church list":     churchList,
	"member register": memberRegister,
	"member list":     memberList,
	"member show":     memberShow,
	"member transfer": memberTransfer,
	"member flag":     memberFlag,
	"member delete":   memberDelete,
	"tithe record":    titheRecord,
	"tithe list":      titheList,
	"expense record":  expenseRecord,
	"expense list":    expenseList,
	"summary":         summary,
	"report":          report,
	"top":             top,
	"stats":           stats,
	"types":           types,
	"trend":           trend,
	"export":          export,
	"import":          importCmd,
	"backups":         backups,
	"user register":   userRegister,
}

// dispatch resolves "group sub" before single-word commands.
func (a *app) dispatch(ctx context.Context, args []string) error {
	if len(args) >= 2 {
		if cmd, ok := commands[args[0]+" "+args[1]]; ok {
			return cmd(ctx, a, args[2:])
		}
	}
	if cmd, ok := commands[args[0]]; ok {
		return cmd(ctx, a, args[1:])
	}
	return fmt.Errorf("unknown command %q", strings.Join(args[:min(len(args), 2)], " "))
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func requireFlags(fs *flag.FlagSet, names ...string) error {
	var missing []string
	for _, n := range names {
		if strings.TrimSpace(fs.Lookup(n).Value.String()) == "" {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	return nil
}

// guard asks for confirmation unless yes is set.
func (a *app) guard(yes bool, question string) error {
	if yes {
		return nil
	}
	ok, err := a.confirm(question)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Cancelled.")
		return errCancelled
	}
	return nil
}

func churchRegister(ctx context.Context, a *app, args []string) error {
	fs := a.flags("church register")
	name := fs.String("name", "", "Church name")
	initials := fs.String("initials", "", "Two to four letter initials")
	if err := fs.Parse(args); err != nil {
		return err
	}
	church, _, err := a.svc.RegisterChurch(ctx, *name, *initials)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Church %s (%s) registered\n", church.Name, church.Initials)
	return nil
}

func churchList(ctx context.Context, a *app, args []string) error {
	fs := a.flags("church list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	list := a.svc.Churches(ctx)
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No churches registered")
		return nil
	}
	tw := newTable(a.out, "NAME", "INITIALS", "MEMBERS", "TITHES", "TOTAL")
	for _, c := range list {
		row(tw, c.Name, c.Initials, c.MemberCount, c.TitheCount, euro(a.printer, c.Contributions))
	}
	return tw.Flush()
}

func memberRegister(ctx context.Context, a *app, args []string) error {
	fs := a.flags("member register")
	church := fs.String("church", "", "Church name")
	name := fs.String("name", "", "Member name")
	sex := fs.String("sex", "", "Male or Female")
	age := fs.Int("age", 0, "Age in years")
	title := fs.String("title", "", "Title, for example Brother or Sister")
	if err := fs.Parse(args); err != nil {
		return err
	}
	m, _, err := a.svc.RegisterMember(ctx, core.MemberInput{Church: *church, Name: *name, Sex: *sex, Age: *age, Title: *title})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Member %s registered with ID %s\n", m.Name, m.ID)
	return nil
}

func memberList(_ context.Context, a *app, args []string) error {
	fs := a.flags("member list")
	church := fs.String("church", "", "Church name")
	search := fs.String("search", "", "Match name, ID or title")
	active := fs.Bool("active", false, "Only active members")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(fs, "church"); err != nil {
		return err
	}
	members, err := a.svc.Members(*church, finance.MemberFilter{Search: *search, ActiveOnly: *active})
	if err != nil {
		return err
	}
	if len(members) == 0 {
		fmt.Fprintln(a.out, "No members found")
		return nil
	}
	tw := newTable(a.out, "ID", "NAME", "TITLE", "SEX", "AGE", "STATUS", "REGISTERED")
	for _, m := range members {
		row(tw, m.ID, m.Name, m.Title, m.Sex, m.Age, m.Status, m.RegisteredDate)
	}
	return tw.Flush()
}

func memberShow(_ context.Context, a *app, args []string) error {
	fs := a.flags("member show")
	church := fs.String("church", "", "Church name")
	id := fs.String("id", "", "Member ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(fs, "church", "id"); err != nil {
		return err
	}
	mc, err := a.svc.Member(*church, *id)
	if err != nil {
		return err
	}
	m := mc.Member
	fmt.Fprintf(a.out, "%s %s (%s)\n", m.Title, m.Name, m.ID)
	fmt.Fprintf(a.out, "Sex: %s  Age: %d  Status: %s  Registered: %s\n", m.Sex, m.Age, m.Status, m.RegisteredDate)
	fmt.Fprintf(a.out, "Contributions: %d totalling %s\n", mc.Count, euro(a.printer, mc.Total))
	if mc.Count == 0 {
		return nil
	}
	tw := newTable(a.out, "DATE", "TYPE", "AMOUNT", "ID")
	for _, t := range mc.Tithes {
		row(tw, t.Date, t.Type, euro(a.printer, t.Amount), t.ID)
	}
	return tw.Flush()
}

func memberTransfer(ctx context.Context, a *app, args []string) error {
	fs := a.flags("member transfer")
	from := fs.String("from", "", "Current church")
	to := fs.String("to", "", "Target church")
	id := fs.String("id", "", "Member ID")
	yes := fs.Bool("yes", false, "Skip confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.guard(*yes, fmt.Sprintf("Transfer member %s from %s to %s?", *id, *from, *to)); err != nil {
		return err
	}
	m, _, err := a.svc.TransferMember(ctx, *from, *to, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Member %s transferred to %s with new ID %s\n", m.Name, *to, m.ID)
	return nil
}

func memberFlag(ctx context.Context, a *app, args []string) error {
	fs := a.flags("member flag")
	church := fs.String("church", "", "Church name")
	id := fs.String("id", "", "Member ID")
	status := fs.String("status", "", "active, inactive or suspended")
	yes := fs.Bool("yes", false, "Skip confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.guard(*yes, fmt.Sprintf("Set member %s to %s?", *id, *status)); err != nil {
		return err
	}
	m, _, err := a.svc.FlagMember(ctx, *church, *id, domain.MemberStatus(strings.ToLower(*status)))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Member %s is now %s\n", m.ID, m.Status)
	return nil
}

func memberDelete(ctx context.Context, a *app, args []string) error {
	fs := a.flags("member delete")
	church := fs.String("church", "", "Church name")
	id := fs.String("id", "", "Member ID")
	yes := fs.Bool("yes", false, "Skip confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.guard(*yes, fmt.Sprintf("Delete member %s and all their contributions?", *id)); err != nil {
		return err
	}
	m, _, err := a.svc.DeleteMember(ctx, *church, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Member %s (%s) deleted\n", m.Name, m.ID)
	return nil
}

func titheRecord(ctx context.Context, a *app, args []string) error {
	fs := a.flags("tithe record")
	church := fs.String("church", "", "Church name")
	member := fs.String("member", "", "Member ID")
	amount := fs.String("amount", "", "Amount in euro")
	typ := fs.String("type", string(domain.TypeTithe), "tithe, offering, donation or special")
	if err := fs.Parse(args); err != nil {
		return err
	}
	value := decimal.Zero
	if raw := strings.TrimSpace(*amount); raw != "" {
		var err error
		if value, err = decimal.NewFromString(strings.ReplaceAll(raw, ",", ".")); err != nil {
			return domain.Invalid("amount", "Amount must be a number")
		}
	}
	t, _, err := a.svc.RecordTithe(ctx, *church, *member, value, domain.TitheType(strings.ToLower(*typ)))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Recorded %s %s from %s (%s)\n", t.Type, euro(a.printer, t.Amount), t.MemberName, t.ID)
	return nil
}

func titheList(_ context.Context, a *app, args []string) error {
	fs := a.flags("tithe list")
	church := fs.String("church", "", "Church name")
	member := fs.String("member", "", "Only this member ID")
	search := fs.String("search", "", "Match member name or title")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(fs, "church"); err != nil {
		return err
	}
	rows, err := a.svc.Tithes(*church, finance.TitheFilter{MemberID: *member, Search: *search})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(a.out, "No tithes found")
		return nil
	}
	tw := newTable(a.out, "DATE", "MEMBER", "TITLE", "TYPE", "AMOUNT", "ID")
	for _, r := range rows {
		row(tw, r.Date, r.Member.Name, r.Member.Title, r.Type, euro(a.printer, r.Amount), r.ID)
	}
	return tw.Flush()
}

func expenseRecord(ctx context.Context, a *app, args []string) error {
	fs := a.flags("expense record")
	church := fs.String("church", "", "Church name")
	title := fs.String("title", "", "Expense title")
	amount := fs.String("amount", "", "Amount in euro")
	category := fs.String("category", "", "Spending category")
	description := fs.String("description", "", "Optional description")
	date := fs.String("date", "", "Optional date, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, _, err := a.svc.RecordExpense(ctx, *church, core.ExpenseInput{
		Title:       *title,
		Amount:      strings.ReplaceAll(*amount, ",", "."),
		Category:    *category,
		Description: *description,
		Date:        *date,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Expense %s of %s recorded (%s)\n", e.Title, euro(a.printer, e.Amount), e.ID)
	return nil
}

func expenseList(_ context.Context, a *app, args []string) error {
	fs := a.flags("expense list")
	church := fs.String("church", "", "Church name")
	category := fs.String("category", "", "Only this category")
	search := fs.String("search", "", "Match title or description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(fs, "church"); err != nil {
		return err
	}
	list, err := a.svc.Expenses(*church, finance.ExpenseFilter{Category: *category, Search: *search})
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No expenses found")
		return nil
	}
	tw := newTable(a.out, "DATE", "TITLE", "CATEGORY", "AMOUNT", "DESCRIPTION")
	for _, e := range list {
		row(tw, e.Date.UTC().Format(domain.DateLayout), e.Title, e.Category, euro(a.printer, e.Amount), e.Description)
	}
	return tw.Flush()
}

func summary(ctx context.Context, a *app, args []string) error {
	fs := a.flags("summary")
	church := fs.String("church", "", "Church name")
	period := fs.String("period", string(domain.PeriodAll), "all, week, month or year")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(fs, "church"); err != nil {
		return err
	}
	s, err := a.svc.Summary(ctx, *church, domain.Period(strings.ToLower(*period)))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Financial summary for %s (%s)\n", *church, s.Period)
	fmt.Fprintf(a.out, "Total income:   %s\n", euro(a.printer, s.TotalIncome))
	fmt.Fprintf(a.out, "Total expenses: %s\n", euro(a.printer, s.TotalExpenses))
	fmt.Fprintf(a.out, "Balance:        %s\n", euro(a.printer, s.Balance))
	if len(s.Categories) == 0 {
		return nil
	}
	fmt.Fprintln(a.out, "Expenses by category:")
	tw := newTable(a.out)
	for _, c := range s.Categories {
		share := ""
		if pct, ok := s.Share(c); ok {
			share = percent(a.printer, pct)
		}
		row(tw, "  "+c.Category, euro(a.printer, c.Amount), share)
	}
	return tw.Flush()
}

func report(_ context.Context, a *app, args []string) error {
	fs := a.flags("report")
	church := fs.String("church", "", "Church name")
	granularity := fs.String("granularity", string(domain.GranularityMonthly), "monthly, quarterly or yearly")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(fs, "church"); err != nil {
		return err
	}
	r, err := a.svc.PeriodReport(*church, domain.Granularity(strings.ToLower(*granularity)))
	if err != nil {
		return err
	}
	tw := newTable(a.out, "PERIOD", "RECORDS", "TOTAL")
	for _, b := range r.Buckets {
		row(tw, b.Key, b.Count, euro(a.printer, b.Total))
	}
	row(tw, "TOTAL", "", euro(a.printer, r.Total))
	return tw.Flush()
}

func top(_ context.Context, a *app, args []string) error {
	fs := a.flags("top")
	church := fs.String("church", "", "Church name")
	limit := fs.Int("limit", finance.DefaultTopLimit, "Number of contributors")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(fs, "church"); err != nil {
		return err
	}
	list, err := a.svc.TopContributors(*church, *limit)
	if err != nil {
		return err
	}
	tw := newTable(a.out, "#", "MEMBER", "TITLE", "RECORDS", "TOTAL")
	for i, c := range list {
		row(tw, i+1, c.MemberName, c.MemberTitle, c.Count, euro(a.printer, c.Total))
	}
	return tw.Flush()
}

func stats(_ context.Context, a *app, args []string) error {
	fs := a.flags("stats")
	church := fs.String("church", "", "Church name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(fs, "church"); err != nil {
		return err
	}
	s, err := a.svc.Statistics(*church)
	if err != nil {
		return err
	}
	tw := newTable(a.out)
	row(tw, "Members", s.TotalMembers)
	row(tw, "Active", s.ActiveMembers)
	row(tw, "Inactive", s.InactiveMembers)
	row(tw, "Suspended", s.SuspendedMembers)
	row(tw, "Male", s.MaleMembers)
	row(tw, "Female", s.FemaleMembers)
	row(tw, "Average age", s.AverageAge)
	row(tw, "Tithe records", s.TotalTithes)
	row(tw, "Total contributions", euro(a.printer, s.TotalAmount))
	row(tw, "Average contribution", euro(a.printer, s.AverageContribution))
	return tw.Flush()
}

func types(_ context.Context, a *app, args []string) error {
	fs := a.flags("types")
	church := fs.String("church", "", "Church name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(fs, "church"); err != nil {
		return err
	}
	totals, err := a.svc.TitheTypeTotals(*church)
	if err != nil {
		return err
	}
	tw := newTable(a.out, "TYPE", "RECORDS", "TOTAL")
	for _, t := range totals {
		row(tw, t.Type, t.Count, euro(a.printer, t.Total))
	}
	return tw.Flush()
}

func trend(_ context.Context, a *app, args []string) error {
	fs := a.flags("trend")
	church := fs.String("church", "", "Church name")
	months := fs.Int("months", finance.DefaultTrendMonths, "Number of months")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(fs, "church"); err != nil {
		return err
	}
	buckets, err := a.svc.MonthlyTrend(*church, *months)
	if err != nil {
		return err
	}
	tw := newTable(a.out, "MONTH", "RECORDS", "TOTAL")
	for _, b := range buckets {
		row(tw, b.Key, b.Count, euro(a.printer, b.Total))
	}
	return tw.Flush()
}

func export(ctx context.Context, a *app, args []string) error {
	fs := a.flags("export")
	out := fs.String("out", "", "Write to this file instead of stdout")
	toBlob := fs.Bool("blob", false, "Store as a backup document")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *toBlob {
		info, err := a.svc.ExportToBlob(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Backup stored as %s\n", info.Key)
		return nil
	}
	if *out == "" {
		return a.svc.Export(ctx, a.out)
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}
	if err := a.svc.Export(ctx, f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Data exported to %s\n", *out)
	return nil
}

func importCmd(ctx context.Context, a *app, args []string) error {
	fs := a.flags("import")
	in := fs.String("in", "", "Read this file")
	key := fs.String("key", "", "Read this backup document")
	yes := fs.Bool("yes", false, "Skip confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*in == "") == (*key == "") {
		return errors.New("exactly one of -in or -key is required")
	}
	if err := a.guard(*yes, "This will replace all current church data. Continue?"); err != nil {
		return err
	}
	var err error
	if *key != "" {
		_, err = a.svc.ImportFromBlob(ctx, *key)
	} else {
		var f io.ReadCloser
		if f, err = os.Open(*in); err != nil {
			return fmt.Errorf("open %s: %w", *in, err)
		}
		_, err = a.svc.Import(ctx, f)
		_ = f.Close()
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Data imported successfully: %d churches\n", len(a.svc.Churches(ctx)))
	return nil
}

func backups(ctx context.Context, a *app, args []string) error {
	fs := a.flags("backups")
	if err := fs.Parse(args); err != nil {
		return err
	}
	list, err := a.svc.Backups(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No backups stored")
		return nil
	}
	tw := newTable(a.out, "KEY", "SIZE", "STORED")
	for _, info := range list {
		row(tw, info.Key, info.Size, info.LastModified.UTC().Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func userRegister(ctx context.Context, a *app, args []string) error {
	fs := a.flags("user register")
	username := fs.String("username", "", "Login name")
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	reg := auth.Registration{Username: *username, Email: *email, Password: *password, Confirm: *password}
	if *password == "" {
		var err error
		if reg.Password, err = a.readPassword("Password: "); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if reg.Confirm, err = a.readPassword("Confirm password: "); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}
	user, _, err := a.svc.RegisterUser(ctx, reg)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "User %s created successfully\n", user.Username)
	return nil
}
