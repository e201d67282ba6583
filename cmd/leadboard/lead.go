package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fentz26/leadboard/internal/board"
	"github.com/fentz26/leadboard/internal/client"
	"github.com/fentz26/leadboard/internal/models"
	"github.com/spf13/cobra"
)

var leadCmd = &cobra.Command{
	Use:   "lead",
	Short: "Manage leads",
}

var leadAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new lead",
	RunE:  runLeadAdd,
}

var leadListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads",
	RunE:  runLeadList,
}

var leadShowCmd = &cobra.Command{
	Use:   "show [lead-id]",
	Short: "Show lead details",
	Args:  cobra.ExactArgs(1),
	RunE:  runLeadShow,
}

var leadMoveCmd = &cobra.Command{
	Use:   "move [lead-id] [status]",
	Short: "Move a lead to another pipeline stage",
	Args:  cobra.ExactArgs(2),
	RunE:  runLeadMove,
}

var leadDeleteCmd = &cobra.Command{
	Use:   "delete [lead-id]",
	Short: "Delete a lead",
	Args:  cobra.ExactArgs(1),
	RunE:  runLeadDelete,
}

var leadInspectCmd = &cobra.Command{
	Use:   "inspect [lead-id]",
	Short: "Book an inspection for a lead",
	Args:  cobra.ExactArgs(1),
	RunE:  runLeadInspect,
}

var leadLogCmd = &cobra.Command{
	Use:   "log [lead-id]",
	Short: "Show a lead's audit trail",
	Args:  cobra.ExactArgs(1),
	RunE:  runLeadLog,
}

var leadStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show lead counts per pipeline stage",
	RunE:  runLeadStats,
}

var (
	newLead struct {
		first, last, email, phone string
		suburb, postcode, address string
		service, urgency, source  string
		notes                     string
		value                     float64
	}
	listStatus string
	listQuery  string
	inspectAt  string
	inspector  string
	findings   string
)

func init() {
	leadCmd.AddCommand(leadAddCmd, leadListCmd, leadShowCmd, leadMoveCmd, leadDeleteCmd, leadInspectCmd, leadLogCmd, leadStatsCmd)

	f := leadAddCmd.Flags()
	f.StringVar(&newLead.first, "first", "", "First name (required)")
	f.StringVar(&newLead.last, "last", "", "Last name")
	f.StringVar(&newLead.email, "email", "", "Email address")
	f.StringVar(&newLead.phone, "phone", "", "Phone number")
	f.StringVar(&newLead.suburb, "suburb", "", "Suburb")
	f.StringVar(&newLead.postcode, "postcode", "", "Postcode")
	f.StringVar(&newLead.address, "address", "", "Street address")
	f.StringVar(&newLead.service, "service", "", "Service type (e.g. mould_inspection)")
	f.StringVar(&newLead.urgency, "urgency", "", "Urgency (low, medium, high, urgent)")
	f.StringVar(&newLead.source, "source", "", "Lead source (e.g. website, referral)")
	f.StringVar(&newLead.notes, "notes", "", "Free-form notes")
	f.Float64Var(&newLead.value, "value", 0, "Estimated job value")
	leadAddCmd.MarkFlagRequired("first")

	leadListCmd.Flags().StringVar(&listStatus, "status", "", "Filter by pipeline stage (e.g. new, quoted)")
	leadListCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Search name, email, phone or suburb")

	leadInspectCmd.Flags().StringVar(&inspectAt, "at", "", `Inspection time, "2006-01-02 15:04" local (required)`)
	leadInspectCmd.Flags().StringVar(&inspector, "inspector", "", "Inspector name")
	leadInspectCmd.Flags().StringVar(&findings, "findings", "", "Inspection findings")
	leadInspectCmd.MarkFlagRequired("at")
}

func newClient() *client.Client {
	return client.New(apiAddr, cfg.Client.Timeout, log.Named("client"))
}

func runLeadAdd(cmd *cobra.Command, args []string) error {
	lead := &models.Lead{
		FirstName: newLead.first,
		LastName:  newLead.last,
		Email:     newLead.email,
		Phone:     newLead.phone,
		Suburb:    newLead.suburb,
		Postcode:  newLead.postcode,
		Address:   newLead.address,
		Notes:     newLead.notes,
	}
	var err error
	if newLead.service != "" {
		if lead.ServiceType, err = models.ParseServiceType(newLead.service); err != nil {
			return err
		}
	}
	if newLead.urgency != "" {
		if lead.Urgency, err = models.ParseUrgency(newLead.urgency); err != nil {
			return err
		}
	}
	if newLead.source != "" {
		if lead.Source, err = models.ParseSource(newLead.source); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("value") {
		v := newLead.value
		lead.EstimatedValue = &v
	}

	created, err := newClient().CreateLead(cmd.Context(), lead)
	if err != nil {
		return err
	}
	fmt.Printf("Created lead: %s (%s)\n", created.ID, created.FullName())
	return nil
}

func runLeadList(cmd *cobra.Command, args []string) error {
	var status models.Status
	if listStatus != "" {
		var err error
		if status, err = models.ParseStatus(listStatus); err != nil {
			return err
		}
	}

	leads, err := newClient().SearchLeads(cmd.Context(), status, listQuery)
	if err != nil {
		return err
	}
	if len(leads) == 0 {
		fmt.Println("No leads found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSUBURB\tURGENCY\tSTATUS")
	for _, l := range leads {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", truncateID(l.ID), truncate(l.FullName(), 30), l.Suburb, l.Urgency, l.Status.Label())
	}
	w.Flush()
	return nil
}

func runLeadShow(cmd *cobra.Command, args []string) error {
	l, err := newClient().GetLead(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:        %s\n", l.ID)
	fmt.Printf("Name:      %s\n", l.FullName())
	fmt.Printf("Status:    %s\n", l.Status.Label())
	fmt.Printf("Email:     %s\n", l.Email)
	fmt.Printf("Phone:     %s\n", l.Phone)
	fmt.Printf("Address:   %s\n", strings.TrimSpace(strings.Join([]string{l.Address, l.Suburb, l.Postcode}, " ")))
	fmt.Printf("Service:   %s\n", l.ServiceType)
	fmt.Printf("Urgency:   %s\n", l.Urgency)
	fmt.Printf("Source:    %s\n", l.Source)
	if l.EstimatedValue != nil {
		fmt.Printf("Estimate:  $%.2f\n", *l.EstimatedValue)
	}
	if l.Notes != "" {
		fmt.Printf("Notes:     %s\n", l.Notes)
	}
	fmt.Printf("Created:   %s\n", l.CreatedAt.Local().Format(time.RFC3339))
	fmt.Printf("Updated:   %s\n", l.UpdatedAt.Local().Format(time.RFC3339))

	for i, in := range l.Inspections {
		if i == 0 {
			fmt.Println("\nInspections:")
		}
		state := "booked"
		if in.Completed {
			state = "done"
		}
		fmt.Printf("  %s  %-6s  %s\n", in.ScheduledAt.Local().Format("2006-01-02 15:04"), state, in.Inspector)
		if in.Findings != "" {
			fmt.Printf("    %s\n", truncate(in.Findings, 200))
		}
	}
	return nil
}

// runLeadMove goes through the board so the CLI and the kanban view apply
// the same transition rules and messages.
func runLeadMove(cmd *cobra.Command, args []string) error {
	status, err := models.ParseStatus(args[1])
	if err != nil {
		return err
	}

	notify := board.NotifierFuncs{
		OnSuccess: func(msg string) { fmt.Println(msg) },
		OnError:   func(msg string) { fmt.Fprintln(os.Stderr, msg) },
	}
	b := board.New(newClient(), notify, log.Named("board"))

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.Client.Timeout)
	defer cancel()
	if err := b.Load(ctx); err != nil {
		return err
	}
	if l, ok := b.Lead(args[0]); ok && l.Status == status {
		fmt.Printf("%s is already %s\n", l.FullName(), status.Label())
		return nil
	}
	return b.Transition(ctx, args[0], status)
}

func runLeadDelete(cmd *cobra.Command, args []string) error {
	if err := newClient().DeleteLead(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted lead %s\n", args[0])
	return nil
}

func runLeadInspect(cmd *cobra.Command, args []string) error {
	at, err := time.ParseInLocation("2006-01-02 15:04", inspectAt, time.Local)
	if err != nil {
		return fmt.Errorf("invalid --at %q: %w", inspectAt, err)
	}

	in, err := newClient().AddInspection(cmd.Context(), args[0], at, inspector, findings)
	if err != nil {
		return err
	}
	fmt.Printf("Booked inspection %s for %s\n", truncateID(in.ID), in.ScheduledAt.Local().Format("Mon 02 Jan 15:04"))
	return nil
}

func runLeadLog(cmd *cobra.Command, args []string) error {
	events, err := newClient().Events(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No events found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tOUTCOME\tDETAILS")
	for _, ev := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ev.Timestamp.Local().Format("2006-01-02 15:04:05"), ev.Action, ev.Outcome, truncate(ev.Details, 60))
	}
	w.Flush()
	return nil
}

func runLeadStats(cmd *cobra.Command, args []string) error {
	counts, err := newClient().Stats(cmd.Context())
	if err != nil {
		return err
	}

	total := 0
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STAGE\tLEADS")
	for _, st := range models.Statuses() {
		fmt.Fprintf(w, "%s\t%d\n", st.Label(), counts[st])
		total += counts[st]
	}
	fmt.Fprintf(w, "Total\t%d\n", total)
	w.Flush()
	return nil
}

// --- Helpers ---

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
