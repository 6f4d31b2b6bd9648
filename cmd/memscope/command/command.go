package command

import (
	"github.com/urfave/cli"

	cmdcommon "github.com/leptonai/memscope/cmd/common"
	cmdmeminfo "github.com/leptonai/memscope/cmd/memscope/meminfo"
	cmdoomsummary "github.com/leptonai/memscope/cmd/memscope/oom-summary"
	cmdoomtasks "github.com/leptonai/memscope/cmd/memscope/oom-tasks"
	cmdpageowner "github.com/leptonai/memscope/cmd/memscope/page-owner"
	cmdslab "github.com/leptonai/memscope/cmd/memscope/slab"
	"github.com/leptonai/memscope/version"
)

const usage = `
# to summarize every OOM event of a support bundle's kernel log
memscope oom-summary -u sos_commands/kernel/dmesg

# to rank page owners of a page_owner dump by memory
memscope page-owner -p -m page_owner_full.txt
`

func App() *cli.App {
	app := cli.NewApp()

	app.Name = "memscope"
	app.Version = version.String()
	app.Usage = usage
	app.Description = "post-mortem memory analysis of Linux support bundles"

	app.Commands = []cli.Command{
		{
			Name:  "oom-summary",
			Usage: "summarize the memory usage of each \"Mem-Info:\" section of a kernel log",
			UsageText: `# to summarize a log in MiB (default)
memscope oom-summary /var/log/messages

# to show the unaccounted memory and its formula in pages
memscope oom-summary -P -u -v /var/log/messages

# to read the live kernel ring buffer
sudo memscope oom-summary --kmsg /dev/kmsg
`,
			Action: cmdoomsummary.Command,
			Flags: append(append([]cli.Flag{
				cmdcommon.KmsgFlag,
				cmdcommon.PageSizeFlag,
				cli.BoolFlag{
					Name:  "unaccounted,u",
					Usage: "show the unaccounted memory row",
				},
				cli.BoolFlag{
					Name:  "full,f",
					Usage: "also show isolated, dirty, writeback, mapped, bounce, free_cma and swap cache rows",
				},
				cli.BoolFlag{
					Name:  "verbose,v",
					Usage: "print the unaccounted memory formula",
				},
				cli.StringFlag{
					Name:  "field-tables",
					Usage: "YAML file with additional field tables (default: ~/.memscope/field-tables.yaml if present)",
				},
				cmdcommon.OutputFlag,
			}, cmdcommon.UnitFlags(true)...), cmdcommon.LogFlags...),
		},
		{
			Name:  "oom-tasks",
			Usage: "list the processes of each OOM killer task dump by RSS",
			UsageText: `# to show the top 10 processes by RSS
memscope oom-tasks /var/log/messages

# to show the top 20 with their swap usage in pages
memscope oom-tasks -P --swap --top 20 /var/log/messages
`,
			Action: cmdoomtasks.Command,
			Flags: append(append([]cli.Flag{
				cmdcommon.KmsgFlag,
				cmdcommon.PageSizeFlag,
				cli.IntFlag{
					Name:  "top",
					Usage: "number of processes to show",
					Value: 10,
				},
				cli.BoolFlag{
					Name:  "swap",
					Usage: "show the swap column",
				},
				cmdcommon.OutputFlag,
			}, cmdcommon.UnitFlags(true)...), cmdcommon.LogFlags...),
		},
		{
			Name:  "page-owner",
			Usage: "aggregate a /sys/kernel/debug/page_owner dump",
			UsageText: `# to rank processes and modules (GiB by default)
memscope page-owner -p -m page_owner_full.txt

# to show the top call traces of one process in MiB
memscope page-owner -M -c --calltrace-process myapp page_owner_full.txt

# to show the processes allocating through a module
memscope page-owner -p --filter-module nvidia page_owner_full.txt
`,
			Action: cmdpageowner.Command,
			Flags: append(append([]cli.Flag{
				cli.BoolFlag{Name: "processes,p", Usage: "show the top processes"},
				cli.BoolFlag{Name: "modules,m", Usage: "show the top modules"},
				cli.BoolFlag{Name: "slabs,s", Usage: "show the top slab allocation functions"},
				cli.BoolFlag{Name: "calltraces,c", Usage: "show the top call traces"},
				cli.StringFlag{
					Name:  "calltrace-process",
					Usage: "only count the call traces of this process (requires --calltraces)",
				},
				cli.StringFlag{
					Name:  "filter-module",
					Usage: "only show the processes allocating through this module (requires --processes)",
				},
				cli.BoolFlag{Name: "orders", Usage: "show slab and non-slab memory by allocation order"},
				cli.BoolFlag{Name: "slab-usage", Usage: "show slab and non-slab memory by process"},
				cli.BoolFlag{Name: "module-orders", Usage: "show memory by module and allocation order"},
				cli.BoolFlag{Name: "zones", Usage: "show memory by NUMA node and zone"},
				cli.IntFlag{
					Name:  "top",
					Usage: "number of rows per view (default: 10, call traces: 5)",
				},
				cli.BoolFlag{
					Name:  "verbose,v",
					Usage: "print the skipped block counters",
				},
				cmdcommon.OutputFlag,
			}, cmdcommon.UnitFlags(false)...), cmdcommon.LogFlags...),
		},
		{
			Name:  "meminfo",
			Usage: "compute the unaccounted memory of /proc/meminfo",
			UsageText: `# to check the running host
memscope meminfo

# to check a support bundle
memscope meminfo -v sosreport/proc
`,
			Action: cmdmeminfo.Command,
			Flags: append([]cli.Flag{
				cli.BoolFlag{
					Name:  "verbose,v",
					Usage: "print the formula",
				},
				cmdcommon.OutputFlag,
			}, cmdcommon.LogFlags...),
		},
		{
			Name:  "slab",
			Usage: "rank the slab caches of /proc/slabinfo by memory",
			UsageText: `# to show the top 10 caches of the running host
sudo memscope slab

# to show every cache of a support bundle
memscope slab -a sosreport/proc
`,
			Action: cmdslab.Command,
			Flags: append([]cli.Flag{
				cli.BoolFlag{
					Name:  "all,a",
					Usage: "show every cache",
				},
				cli.IntFlag{
					Name:  "top,l",
					Usage: "number of caches to show",
					Value: 10,
				},
				cmdcommon.PageSizeFlag,
				cmdcommon.OutputFlag,
			}, cmdcommon.LogFlags...),
		},
	}

	return app
}
