package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/user"
)

// userListState holds the listing filters and position; filters go through SetFilter.
func userListState(status, search string, pageSize int) *core.PageState {
	ps := core.NewPageState(pageSize)
	ps.SetFilter("status", status)
	ps.SetFilter("search", search)
	return ps
}

func userFilter(ps *core.PageState) user.QueryFilter {
	flt := ps.Filters()
	filter := user.QueryFilter{Status: flt["status"], Search: flt["search"]}
	filter.Clean()
	return filter
}

// listUsers walks every page of ps and prints one row per user.
func (cli *commandLine) listUsers(ps *core.PageState) error {
	ctx := context.Background()
	filter := userFilter(ps)

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tNAME\tSTATUS\tROLES")

	for {
		users, count, err := cli.usrRepo.QueryUsers(ctx, filter, ps.Pagination(), []core.DBOrdering{{Field: "email", Ascending: true}})
		if err != nil {
			return err
		}
		ps.SetCount(count)

		for _, usr := range users {
			names := make([]string, 0, len(usr.Roles))
			for _, r := range usr.Roles {
				names = append(names, r.Name)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", usr.Email, usr.Name(), usr.Status, strings.Join(names, ","))
		}
		if !ps.Next() {
			break
		}
	}
	fmt.Fprintf(w, "\n%d user(s)\n", ps.Count())
	return w.Flush()
}
