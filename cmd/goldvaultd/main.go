package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/goldvault/goldvault/internal/domain"
	"github.com/goldvault/goldvault/internal/services"
	"github.com/goldvault/goldvault/internal/store"
	"github.com/goldvault/goldvault/pkg/config"
	"github.com/goldvault/goldvault/pkg/logger"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: goldvaultd [-config file] <command> [args]

commands:
  migrate                                      apply the schema
  add-member   -name N -email E                register a member
  set-rate     -buy P -sell P -admin ID        publish a new gold rate version
  rate                                         show the active rate
  rates                                        show rate history
  buy          -member ID -qty Q -admin ID     record an admin buy (completes)
  sell         -member ID -qty Q -by ID [-as-admin]  create a sell (pending unless -as-admin)
  approve      -trade ID -admin ID             complete a pending sell
  reject       -trade ID -admin ID             cancel a pending sell
  cancel       -trade ID -admin ID             reverse a completed buy
  trades       -member ID                      list a member's trades
  holdings     -member ID                      show a member's balance
  reconcile    [-member ID] [-repair]          audit holdings against the trade log
`)
	os.Exit(2)
}

func main() {
	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("GOLDVAULT_CONFIG"), "yaml config file path")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, OutputFile: cfg.LogFile, MaxSize: cfg.LogMaxSize}); err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	facade := services.NewFacade(st)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if err := run(ctx, cmd, args, st, facade); err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func run(ctx context.Context, cmd string, args []string, st *store.Store, facade *services.Facade) error {
	switch cmd {
	case "migrate":
		// store.Open already migrated; this is the explicit form.
		return st.Migrate(ctx)

	case "add-member":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		name := fs.String("name", "", "member name")
		email := fs.String("email", "", "member email")
		_ = fs.Parse(args)
		if *name == "" || *email == "" {
			return fmt.Errorf("-name and -email are required")
		}
		now := time.Now().UTC()
		m := &domain.Member{
			ID:           uuid.NewString(),
			Name:         *name,
			Email:        *email,
			GoldHoldings: decimal.Zero,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := st.InsertMember(ctx, m); err != nil {
			return err
		}
		return printJSON(m)

	case "set-rate":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		buy := fs.String("buy", "", "buy price per gram")
		sell := fs.String("sell", "", "sell price per gram")
		admin := fs.String("admin", "", "admin id")
		_ = fs.Parse(args)
		buyPrice, err := decimal.NewFromString(*buy)
		if err != nil {
			return fmt.Errorf("bad -buy: %w", err)
		}
		sellPrice, err := decimal.NewFromString(*sell)
		if err != nil {
			return fmt.Errorf("bad -sell: %w", err)
		}
		rate, err := facade.CreateGoldRateVersion(ctx, services.CreateRateInput{
			BuyPrice: buyPrice, SellPrice: sellPrice, AdminID: *admin,
		})
		if err != nil {
			return err
		}
		return printJSON(rate)

	case "rate":
		rate, err := facade.GetActiveGoldRate(ctx)
		if err != nil {
			return err
		}
		return printJSON(rate)

	case "rates":
		rates, err := facade.ListRateHistory(ctx)
		if err != nil {
			return err
		}
		return printJSON(rates)

	case "buy", "sell":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		member := fs.String("member", "", "member id")
		qty := fs.String("qty", "", "quantity in grams")
		by := fs.String("by", "", "initiator id (sell)")
		admin := fs.String("admin", "", "admin id (buy)")
		asAdmin := fs.Bool("as-admin", false, "treat sell initiator as admin")
		notes := fs.String("notes", "", "optional notes")
		_ = fs.Parse(args)
		quantity, err := decimal.NewFromString(*qty)
		if err != nil {
			return fmt.Errorf("bad -qty: %w", err)
		}
		in := services.CreateTradeInput{
			MemberID: *member,
			Quantity: quantity,
			Notes:    *notes,
		}
		if cmd == "buy" {
			in.TradeType = domain.TradeTypeBuy
			in.InitiatorID = *admin
			in.IsAdmin = true
		} else {
			in.TradeType = domain.TradeTypeSell
			in.InitiatorID = *by
			in.IsAdmin = *asAdmin
		}
		t, err := facade.CreateTrade(ctx, in)
		if err != nil {
			return err
		}
		return printJSON(t)

	case "approve", "reject":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		trade := fs.String("trade", "", "trade id")
		admin := fs.String("admin", "", "admin id")
		_ = fs.Parse(args)
		status := domain.TradeStatusCompleted
		if cmd == "reject" {
			status = domain.TradeStatusCancelled
		}
		t, err := facade.UpdateTradeStatus(ctx, *trade, status, *admin)
		if err != nil {
			return err
		}
		return printJSON(t)

	case "cancel":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		trade := fs.String("trade", "", "trade id")
		admin := fs.String("admin", "", "admin id")
		_ = fs.Parse(args)
		t, err := facade.CancelTrade(ctx, *trade, *admin)
		if err != nil {
			return err
		}
		return printJSON(t)

	case "trades":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		member := fs.String("member", "", "member id")
		_ = fs.Parse(args)
		trades, err := facade.ListMemberTrades(ctx, *member)
		if err != nil {
			return err
		}
		return printJSON(trades)

	case "holdings":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		member := fs.String("member", "", "member id")
		_ = fs.Parse(args)
		h, err := facade.Holdings(ctx, *member)
		if err != nil {
			return err
		}
		fmt.Println(h.String())
		return nil

	case "reconcile":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		member := fs.String("member", "", "member id (all members when empty)")
		repair := fs.Bool("repair", false, "rewrite drifted counters from the trade log")
		_ = fs.Parse(args)
		if *member != "" {
			rec, err := facade.ReconcileHoldings(ctx, *member, *repair)
			if err != nil {
				return err
			}
			return printJSON(rec)
		}
		drifted, err := facade.ReconcileAll(ctx, *repair)
		if err != nil {
			return err
		}
		if len(drifted) == 0 {
			fmt.Println("all members in sync")
			return nil
		}
		return printJSON(drifted)

	default:
		usage()
		return nil
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
