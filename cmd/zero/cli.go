package main

import (
	"fmt"
	"sort"
	"strings"
)

type command struct {
	usage   string
	handler func(args []string) error
}

type CommandHandler struct {
	items map[string]command
}

func NewCommandHandler() *CommandHandler {
	return &CommandHandler{
		items: make(map[string]command),
	}
}

func (ch *CommandHandler) Add(name, usage string, handler func(args []string) error) {
	ch.items[name] = command{usage: usage, handler: handler}
}

// Execute runs the command named by args[0] with the remaining arguments.
func (ch *CommandHandler) Execute(args []string) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("command required\n%v", ch.Usage())
	}
	item, found := ch.items[args[0]]
	if !found {
		return fmt.Errorf("command not found %v\n%v", args[0], ch.Usage())
	}
	return item.handler(args[1:])
}

func (ch *CommandHandler) Usage() string {
	var names = make([]string, 0, len(ch.items))
	for name := range ch.items {
		names = append(names, name)
	}
	sort.Strings(names)
	var sb strings.Builder
	sb.WriteString("commands:")
	for _, name := range names {
		fmt.Fprintf(&sb, "\n  %-16v %v", name, ch.items[name].usage)
	}
	return sb.String()
}
