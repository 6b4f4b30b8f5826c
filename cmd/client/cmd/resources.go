package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// meCmd represents the me command
var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the logged in account and its capabilities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := session()
		if err != nil {
			return err
		}
		out, err := s.Me(cmd.Context())
		if err != nil {
			return handleError(err, cmd)
		}
		return printJSON(cmd, out)
	},
}

// coursesCmd represents the courses command
var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List courses visible to the current role",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := session()
		if err != nil {
			return err
		}
		out, err := s.Courses(cmd.Context())
		if err != nil {
			return handleError(err, cmd)
		}
		return printJSON(cmd, out)
	},
}

// ridesCmd represents the rides command
var ridesCmd = &cobra.Command{
	Use:   "rides",
	Short: "List your rides, or bookable rides with --available",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		available, _ := cmd.Flags().GetBool("available")
		s, err := session()
		if err != nil {
			return err
		}
		out, err := s.Rides(cmd.Context(), available)
		if err != nil {
			return handleError(err, cmd)
		}
		return printJSON(cmd, out)
	},
}

// requestsCmd represents the requests command
var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "List your ride requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := session()
		if err != nil {
			return err
		}
		out, err := s.Requests(cmd.Context())
		if err != nil {
			return handleError(err, cmd)
		}
		return printJSON(cmd, out)
	},
}

// projectsCmd represents the projects command
var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List your projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := session()
		if err != nil {
			return err
		}
		out, err := s.Projects(cmd.Context())
		if err != nil {
			return handleError(err, cmd)
		}
		return printJSON(cmd, out)
	},
}

// callCmd represents the call command
var callCmd = &cobra.Command{
	Use:   "call METHOD PATH [JSON]",
	Short: "Send an authenticated request to any endpoint",
	Example: `  rolegate call GET /v1/courses
  rolegate call POST /v1/courses '{"name":"Go","description":"intro"}'
  rolegate call DELETE /v1/courses/3`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var body any
		if len(args) == 3 {
			if !json.Valid([]byte(args[2])) {
				return fmt.Errorf("call: body is not valid JSON")
			}
			body = json.RawMessage(args[2])
		}
		s, err := session()
		if err != nil {
			return err
		}
		out, err := s.Call(cmd.Context(), args[0], args[1], body)
		if err != nil {
			return handleError(err, cmd)
		}
		return printJSON(cmd, out)
	},
}

func init() {
	ridesCmd.Flags().Bool("available", false, "list rides open for booking")
}
