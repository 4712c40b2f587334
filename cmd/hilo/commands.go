package hilo

import (
	"fmt"
	"github.com/ValentinKolb/dDoc/rpc/client"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/spf13/cobra"
	"strconv"
)

var (
	nextCmd = &cobra.Command{
		Use:   "next [tag]",
		Short: "Generates document ids for a collection tag",
		Long:  "Generates document ids for a collection tag. The unused part of the range is returned to the server afterwards.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := cmd.Flags().GetInt("count")
			if err != nil {
				return err
			}
			for i := 0; i < count; i++ {
				id, err := docStore.GenerateDocumentIDForTag(cmd.Context(), "", args[0])
				if err != nil {
					return err
				}
				fmt.Println(id)
			}
			return nil
		},
	}
	returnCmd = &cobra.Command{
		Use:   "return [tag] [low] [high]",
		Short: "Returns the range [low, high] of a collection tag",
		Long:  "Returns the range [low, high] of a collection tag. The counter is only lowered if it still equals high.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			low, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("low must be a number: %w", err)
			}
			high, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("high must be a number: %w", err)
			}
			if err := docStore.Executor().Execute(cmd.Context(), client.NewHiloReturnCommand(docStore.Database(), common.ReturnRangeRequest{
				Tag:  args[0],
				Low:  low,
				High: high,
			})); err != nil {
				return err
			}
			fmt.Println("returned successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [tag]",
		Short: "Reads the counter document of a collection tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, found, err := docStore.GetHiloDocument(cmd.Context(), "", args[0])
			if err != nil {
				return err
			}
			if !found {
				fmt.Printf("tag=%s, found=false\n", args[0])
				return nil
			}
			fmt.Printf("id=%s, max=%d, lastRangeAt=%s, token=%s\n", doc.ID, doc.Max, doc.LastRangeAt, doc.Token)
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [tag] [max]",
		Short: "Overwrites the counter of a collection tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("max must be a number: %w", err)
			}
			token, _ := cmd.Flags().GetString("token")
			doc, err := docStore.PutHiloDocument(cmd.Context(), "", args[0], value, token)
			if err != nil {
				return err
			}
			fmt.Printf("id=%s, max=%d, token=%s\n", doc.ID, doc.Max, doc.Token)
			return nil
		},
	}
)

func init() {
	nextCmd.Flags().Int("count", 1, "How many ids to generate")
	setCmd.Flags().String("token", "", "Only write if the counter still has this token")
}
